package api

import (
	"net/http"

	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/router"
)

func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, types.ScanStatus{Scanning: h.svc.Sensors.Scanning()})

	return nil
}

func (h *Handler) RegisterGetScan(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getScan",
		Summary:     "Get scan state",
		Description: "Reports whether a scan session is running",
		Group:       ScanGroup,
		Handler:     apicommon.ErrorHandler(h.GetScan),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: scanStatusResponse("Current scan state"),
		}),
	})
}

func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) error {
	h.svc.Sensors.StartScan()
	apicommon.RespondJSON(w, r, http.StatusOK, types.ScanStatus{Scanning: true})

	return nil
}

func (h *Handler) RegisterStartScan(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "startScan",
		Summary:     "Start scanning",
		Description: "Starts a scan session. Previously seen nonces are forgotten, readings are kept. Gateways are told to scan through the retained gateways/scan topic.",
		Group:       ScanGroup,
		Handler:     apicommon.ErrorHandler(h.StartScan),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: scanStatusResponse("Scan started"),
		}),
	})
}

func (h *Handler) StopScan(w http.ResponseWriter, r *http.Request) error {
	h.svc.Sensors.StopScan()
	apicommon.RespondJSON(w, r, http.StatusOK, types.ScanStatus{Scanning: false})

	return nil
}

func (h *Handler) RegisterStopScan(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "stopScan",
		Summary:     "Stop scanning",
		Description: "Ends the scan session. Readings stay available.",
		Group:       ScanGroup,
		Handler:     apicommon.ErrorHandler(h.StopScan),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: scanStatusResponse("Scan stopped"),
		}),
	})
}

func (h *Handler) GetScanOnStart(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, types.ScanOnStartStatus{Enabled: h.svc.Sensors.ScanOnStart()})

	return nil
}

func (h *Handler) RegisterGetScanOnStart(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getScanOnStart",
		Summary:     "Get scan on start",
		Description: "Reports whether the service starts scanning when it boots.",
		Group:       ScanGroup,
		Handler:     apicommon.ErrorHandler(h.GetScanOnStart),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: scanOnStartResponse("Current setting"),
		}),
	})
}

func (h *Handler) PutScanOnStart(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[types.ScanOnStartStatus](r)
	if err != nil {
		return err
	}

	if err := h.svc.Sensors.SetScanOnStart(r.Context(), req.Enabled); err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, types.ScanOnStartStatus{Enabled: req.Enabled})

	return nil
}

func (h *Handler) RegisterPutScanOnStart(path string, rb *router.RouteBuilder) {
	rb.MustPut(path, router.RouteSpec{
		OperationID: "putScanOnStart",
		Summary:     "Set scan on start",
		Description: "Persists whether the service starts scanning when it boots. The running scan is not affected.",
		Group:       ScanGroup,
		Handler:     apicommon.ErrorHandler(h.PutScanOnStart),
		RequestType: &router.RequestBodySpec{
			Type: types.ScanOnStartStatus{},
			Examples: map[string]any{
				"Disable": types.ScanOnStartStatus{Enabled: false},
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: scanOnStartResponse("Updated setting"),
		}),
	})
}

func scanOnStartResponse(description string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.ScanOnStartStatus{},
		Examples: map[string]any{
			"Enabled": types.ScanOnStartStatus{Enabled: true},
		},
	}
}

func scanStatusResponse(description string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.ScanStatus{},
		Examples: map[string]any{
			"Scanning": types.ScanStatus{Scanning: true},
			"Idle":     types.ScanStatus{Scanning: false},
		},
	}
}
