package api

import (
	"errors"
	"fmt"
	"net/http"

	"envsensor/backend/internal/admission"
	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/services"
	"envsensor/backend/internal/session"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/router"
)

func outcomeResponse(out session.Outcome) types.OutcomeResponse {
	resp := types.OutcomeResponse{Outcome: out.Kind.String(), Reading: out.Reading}

	if out.Reason != nil {
		resp.Reason = out.Reason.Error()
	}

	if out.HasVendor {
		vendor := fmt.Sprintf("0x%04X", out.Vendor)
		resp.Vendor = &vendor
	}

	return resp
}

func (h *Handler) IngestAdvertisement(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[types.Advertisement](r)
	if err != nil {
		return err
	}

	out, err := h.svc.Sensors.Ingest(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAdvertisement) {
			return apicommon.NewError(http.StatusBadRequest, err.Error())
		}

		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, outcomeResponse(out))

	return nil
}

func (h *Handler) RegisterIngestAdvertisement(path string, rb *router.RouteBuilder) {
	reading := exampleReading()
	vendor := "0xFFFF"
	other := "0x004C"

	rb.MustPost(path, router.RouteSpec{
		OperationID: "ingestAdvertisement",
		Summary:     "Submit an advertisement",
		Description: "Runs one advertisement through the same pipeline as the MQTT ingest topic and reports what happened to it. Rejections are ordinary outcomes, not errors.",
		Group:       DiagnoseGroup,
		Handler:     apicommon.ErrorHandler(h.IngestAdvertisement),
		RequestType: &router.RequestBodySpec{
			Type: types.Advertisement{},
			Examples: map[string]any{
				"Sensor": exampleAdvertisement(),
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Outcome of the advertisement",
				Type:        types.OutcomeResponse{},
				Examples: map[string]any{
					"Stored":    types.OutcomeResponse{Outcome: session.Stored.String(), Vendor: &vendor, Reading: &reading},
					"Duplicate": types.OutcomeResponse{Outcome: session.Duplicate.String(), Vendor: &vendor},
					"Rejected":  types.OutcomeResponse{Outcome: session.Rejected.String(), Reason: admission.ErrVendorMismatch.Error(), Vendor: &other},
				},
			},
		}),
	})
}

func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[types.DecodeRequest](r)
	if err != nil {
		return err
	}

	p, err := h.svc.Sensors.Decode(req.Payload)
	if err != nil {
		return apicommon.NewError(http.StatusBadRequest, err.Error())
	}

	apicommon.RespondJSON(w, r, http.StatusOK, types.DecodeResponse{
		Nonce:       p.Nonce,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Pressure:    p.Pressure,
		Voltage:     p.Voltage,
		Current:     p.Current,
		Power:       p.Power(),
	})

	return nil
}

func (h *Handler) RegisterDecode(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "decodePayload",
		Summary:     "Decode a payload",
		Description: "Decodes a sensor frame without touching the session. Accepts the bare 16 byte frame or the 18 byte manufacturer data including the vendor prefix.",
		Group:       DiagnoseGroup,
		Handler:     apicommon.ErrorHandler(h.Decode),
		RequestType: &router.RequestBodySpec{
			Type: types.DecodeRequest{},
			Examples: map[string]any{
				"Frame": types.DecodeRequest{Payload: "010064095016701B0000900100040000"},
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Decoded fields",
				Type:        types.DecodeResponse{},
				Examples: map[string]any{
					"Decoded": types.DecodeResponse{Nonce: 1, Temperature: 24.04, Humidity: 57.12, Pressure: 702.4, Voltage: 4, Current: 10.24, Power: 40.96},
				},
			},
		}),
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, h.svc.Sensors.Stats())

	return nil
}

func (h *Handler) RegisterGetStats(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getStats",
		Summary:     "Session statistics",
		Description: "Outcome counters since the session was created or reset, with dedup and store sizes.",
		Group:       DiagnoseGroup,
		Handler:     apicommon.ErrorHandler(h.GetStats),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Statistics",
				Type:        session.Stats{},
				Examples: map[string]any{
					"Scanning": exampleStats(),
				},
			},
		}),
	})
}
