package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"envsensor/backend/internal/admission"
	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/router"
)

func (h *Handler) allowListResponse() types.AllowListResponse {
	return types.AllowListResponse{
		DeviceIDs:     h.svc.Sensors.AllowList(),
		FilterEnabled: h.svc.Sensors.FilterEnabled(),
	}
}

func (h *Handler) GetAllowList(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, h.allowListResponse())

	return nil
}

func (h *Handler) RegisterGetAllowList(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getAllowList",
		Summary:     "Get the allow-list",
		Description: "An empty allow-list accepts readings from every sensor.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.GetAllowList),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: allowListResponseSpec("Current allow-list"),
		}),
	})
}

func (h *Handler) AddAllowed(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[types.AllowDeviceRequest](r)
	if err != nil {
		return err
	}

	if _, err := h.svc.Sensors.AllowDevice(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, admission.ErrEmptyDeviceID) {
			return apicommon.NewValidationError(map[string]string{"deviceID": "must not be empty"})
		}

		return err
	}

	apicommon.RespondJSON(w, r, http.StatusCreated, h.allowListResponse())

	return nil
}

func (h *Handler) RegisterAddAllowed(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "addAllowed",
		Summary:     "Allow a device",
		Description: "Adds a device identity to the allow-list. The identity is trimmed and upper-cased. Adding an identity twice has no effect.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.AddAllowed),
		RequestType: &router.RequestBodySpec{
			Type: types.AllowDeviceRequest{},
			Examples: map[string]any{
				"Device": types.AllowDeviceRequest{DeviceID: "c4:7f:51:0a:22:9e"},
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusCreated: allowListResponseSpec("Updated allow-list"),
		}),
	})
}

func (h *Handler) RemoveAllowed(w http.ResponseWriter, r *http.Request) error {
	deviceID, err := url.PathUnescape(chi.URLParam(r, "deviceID"))
	if err != nil {
		return apicommon.NewError(http.StatusBadRequest, "Invalid device identity")
	}

	removed, err := h.svc.Sensors.DisallowDevice(r.Context(), deviceID)
	if err != nil {
		return err
	}

	if !removed {
		return apicommon.NewError(http.StatusNotFound, "Device is not on the allow-list")
	}

	apicommon.RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (h *Handler) RegisterRemoveAllowed(path string, rb *router.RouteBuilder) {
	rb.MustDelete(path, router.RouteSpec{
		OperationID: "removeAllowed",
		Summary:     "Disallow a device",
		Description: "Removes a device identity from the allow-list. Matching ignores case and surrounding whitespace.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.RemoveAllowed),
		Parameters: map[string]router.ParameterSpec{
			"deviceID": {
				In:          router.ParameterInPath,
				Description: "Device identity to remove",
				Required:    true,
				Type:        new(string),
			},
		},
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusNoContent: {Description: "Device removed"},
			http.StatusNotFound: {
				Description: "Device was not on the allow-list",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Not Found": types.ErrorResponse{Message: "Device is not on the allow-list"},
				},
			},
		}),
	})
}

func (h *Handler) ClearAllowList(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.Sensors.ClearAllowList(r.Context()); err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (h *Handler) RegisterClearAllowList(path string, rb *router.RouteBuilder) {
	rb.MustDelete(path, router.RouteSpec{
		OperationID: "clearAllowList",
		Summary:     "Clear the allow-list",
		Description: "Removes every entry. Readings from all sensors are accepted afterwards.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.ClearAllowList),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusNoContent: {Description: "Allow-list cleared"},
		}),
	})
}

func allowListResponseSpec(description string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.AllowListResponse{},
		Examples: map[string]any{
			"Filtered":   types.AllowListResponse{DeviceIDs: []string{exampleDevice}, FilterEnabled: true},
			"Unfiltered": types.AllowListResponse{DeviceIDs: []string{}, FilterEnabled: false},
		},
	}
}

func (h *Handler) GetDiscovery(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, types.DiscoveryStatus{Enabled: h.svc.Sensors.DiscoveryMode()})

	return nil
}

func (h *Handler) RegisterGetDiscovery(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getDiscovery",
		Summary:     "Get discovery mode",
		Description: "In discovery mode advertisements are only logged and no readings are produced.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.GetDiscovery),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: discoveryResponseSpec("Current discovery mode"),
		}),
	})
}

func (h *Handler) PutDiscovery(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[types.DiscoveryStatus](r)
	if err != nil {
		return err
	}

	if err := h.svc.Sensors.SetDiscoveryMode(r.Context(), req.Enabled); err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, types.DiscoveryStatus{Enabled: req.Enabled})

	return nil
}

func (h *Handler) RegisterPutDiscovery(path string, rb *router.RouteBuilder) {
	rb.MustPut(path, router.RouteSpec{
		OperationID: "putDiscovery",
		Summary:     "Set discovery mode",
		Description: "Enables or disables discovery mode. The setting is persisted.",
		Group:       SettingsGroup,
		Handler:     apicommon.ErrorHandler(h.PutDiscovery),
		RequestType: &router.RequestBodySpec{
			Type: types.DiscoveryStatus{},
			Examples: map[string]any{
				"Enable": types.DiscoveryStatus{Enabled: true},
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: discoveryResponseSpec("Updated discovery mode"),
		}),
	})
}

func discoveryResponseSpec(description string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.DiscoveryStatus{},
		Examples: map[string]any{
			"Enabled":  types.DiscoveryStatus{Enabled: true},
			"Disabled": types.DiscoveryStatus{Enabled: false},
		},
	}
}
