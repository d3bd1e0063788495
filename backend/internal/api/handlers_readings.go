package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"envsensor/backend/internal/apicommon"
	"envsensor/backend/internal/readings"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/router"
	"envsensor/backend/pkg/utils"
)

const streamKeepAlive = 15 * time.Second

func (h *Handler) GetReadings(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, types.ReadingsResponse{Readings: h.svc.Sensors.Readings()})

	return nil
}

func (h *Handler) RegisterGetReadings(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getReadings",
		Summary:     "List readings",
		Description: "Returns the most recent readings of the current session, newest first. At most 100 are kept.",
		Group:       ReadingsGroup,
		Handler:     apicommon.ErrorHandler(h.GetReadings),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Readings, newest first",
				Type:        types.ReadingsResponse{},
				Examples: map[string]any{
					"Readings": types.ReadingsResponse{Readings: []readings.Reading{exampleReading()}},
					"Empty":    types.ReadingsResponse{Readings: []readings.Reading{}},
				},
			},
		}),
	})
}

func (h *Handler) ResetReadings(w http.ResponseWriter, r *http.Request) error {
	h.svc.Sensors.Reset()
	apicommon.RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (h *Handler) RegisterResetReadings(path string, rb *router.RouteBuilder) {
	rb.MustDelete(path, router.RouteSpec{
		OperationID: "resetReadings",
		Summary:     "Reset the session",
		Description: "Drops readings, discovered devices, seen nonces and counters. Allow-list and discovery mode are kept.",
		Group:       ReadingsGroup,
		Handler:     apicommon.ErrorHandler(h.ResetReadings),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusNoContent: {Description: "Session reset", Type: nil},
		}),
	})
}

// StreamReadings sends a "readings" server-sent event with the full snapshot after every change.
func (h *Handler) StreamReadings(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("response writer does not support flushing")
	}

	// The server write timeout would otherwise cut the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to clear write deadline: %w", err)
	}

	updates, unsubscribe := h.svc.Sensors.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	l := apicommon.GetLogger(r.Context())

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}

			flusher.Flush()

		case snapshot, ok := <-updates:
			if !ok {
				return nil
			}

			data, err := utils.ToJSON(types.ReadingsResponse{Readings: snapshot})
			if err != nil {
				l.Error("Failed to encode readings event", utils.ErrAttr(err))
				continue
			}

			if _, err := fmt.Fprintf(w, "event: readings\ndata: %s\n\n", data); err != nil {
				return nil
			}

			flusher.Flush()
		}
	}
}

func (h *Handler) RegisterStreamReadings(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "streamReadings",
		Summary:     "Stream readings",
		Description: "Server-sent events. The current snapshot is sent on connect, then a `readings` event follows every change. Slow clients skip intermediate snapshots.",
		Group:       ReadingsGroup,
		Handler:     apicommon.ErrorHandler(h.StreamReadings),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Event stream, each data line is a readings snapshot",
				ContentType: "text/event-stream",
				Type:        types.ReadingsResponse{},
			},
		}),
	})
}

func (h *Handler) GetDevices(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, types.DevicesResponse{Devices: h.svc.Sensors.Discovered()})

	return nil
}

func (h *Handler) RegisterGetDevices(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getDevices",
		Summary:     "List discovered devices",
		Description: "Devices whose advertisements carried the sensor vendor identifier in this session, allow-listed or not, sorted.",
		Group:       ReadingsGroup,
		Handler:     apicommon.ErrorHandler(h.GetDevices),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Discovered device identities",
				Type:        types.DevicesResponse{},
				Examples: map[string]any{
					"Devices": types.DevicesResponse{Devices: []string{exampleDevice, exampleDevice2}},
				},
			},
		}),
	})
}
