package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/MeKo-Tech/routemeta/internal/metadata"
	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/routefile"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// errBadRequest marks request errors that are not validation sentinels.
var errBadRequest = errors.New("bad request")

// analyzeRequest is the JSON body of POST /api/road-types/analyze.
type analyzeRequest struct {
	types.Route
	// Mode overrides the travel mode derived from the route type.
	Mode string `json:"mode,omitempty"`
}

type analyzeResponse struct {
	Route     *types.Route     `json:"route"`
	Result    *pipeline.Result `json:"result"`
	ElapsedMs int64            `json:"elapsed_ms"`
}

type decodeRequest struct {
	Metadata string `json:"metadata"`
}

type decodeResponse struct {
	State    metadata.State     `json:"state"`
	Message  string             `json:"message,omitempty"`
	Metadata *metadata.Metadata `json:"metadata,omitempty"`
}

type roadTypesResponse struct {
	Mode         roadtype.TravelMode   `json:"mode"`
	AverageSpeed float64               `json:"averageSpeed"`
	Modes        []roadtype.TravelMode `json:"modes"`
	RoadTypes    []roadtype.Entry      `json:"roadTypes"`
}

type errorBody struct {
	Code      int    `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (a *API) roadTypesHandler(w http.ResponseWriter, r *http.Request) {
	mode := roadtype.ModeCycling
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := roadtype.ParseTravelMode(q)
		if err != nil {
			a.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	a.sendJSON(w, r, http.StatusOK, roadTypesResponse{
		Mode:         mode,
		AverageSpeed: mode.AverageSpeedKmh(),
		Modes:        roadtype.Modes,
		RoadTypes:    a.cfg.Registry.Entries(),
	})
}

func (a *API) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	a.total.Add(1)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.rejected.Add(1)
			a.errorResponse(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		a.errorResponse(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}

	var mode roadtype.TravelMode
	route, bodyMode, err := decodeRoute(r.Header.Get("Content-Type"), data)
	if err == nil {
		mode, err = modeOverride(r, route, bodyMode)
	}
	if err == nil && a.cfg.MaxPoints > 0 && len(route.Points) > a.cfg.MaxPoints {
		err = fmt.Errorf("%w: route has %d points, at most %d allowed", errBadRequest, len(route.Points), a.cfg.MaxPoints)
	}
	if err != nil {
		a.rejected.Add(1)
		a.errorResponse(w, r, statusFor(err), err.Error())
		return
	}

	var out routefile.Format
	if f := r.URL.Query().Get("format"); f != "" {
		if out, err = routefile.ParseFormat(f); err != nil {
			a.rejected.Add(1)
			a.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	release, ok := a.acquire(r.Context())
	if !ok {
		a.rejected.Add(1)
		a.errorResponse(w, r, http.StatusRequestTimeout, "request cancelled")
		return
	}
	defer release()

	start := time.Now()
	res, err := a.engine.AnnotateMode(r.Context(), route, mode)
	if err != nil {
		a.failed.Add(1)
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			a.logger.Error("failed to analyze route", "request_id", requestID(r), "points", len(route.Points), "error", err)
		}
		a.errorResponse(w, r, status, err.Error())
		return
	}

	if res.Degraded {
		a.logger.Warn("route analyzed with fallback classifications",
			"request_id", requestID(r),
			"points", len(route.Points),
			"unresolved", res.Unresolved)
	}

	if out != "" {
		body, err := routefile.Encode(out, route)
		if err != nil {
			a.errorResponse(w, r, http.StatusInternalServerError, "failed to encode route")
			return
		}
		w.Header().Set("Content-Type", out.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "route"+out.Extension()))
		_, _ = w.Write(body)
		return
	}

	a.sendJSON(w, r, http.StatusOK, analyzeResponse{
		Route:     route,
		Result:    res,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

func (a *API) decodeHandler(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.errorResponse(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		a.errorResponse(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	m, state := metadata.Decode(req.Metadata)
	resp := decodeResponse{State: state, Message: state.Message()}
	if state != metadata.StateCorrupt || m.Version != 0 {
		resp.Metadata = &m
	}
	a.sendJSON(w, r, http.StatusOK, resp)
}

func (a *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	a.sendJSON(w, r, http.StatusOK, a.Status(r.Context()))
}

// statusStreamHandler pushes the status as Server-Sent Events until the
// client disconnects.
func (a *API) statusStreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.errorResponse(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(a.cfg.StatusInterval)
	defer ticker.Stop()

	a.sendStatusEvent(r.Context(), w, flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			a.sendStatusEvent(r.Context(), w, flusher)
		}
	}
}

func (a *API) sendStatusEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(a.Status(ctx))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// decodeRoute parses a JSON route request or a GPX/GeoJSON file. The
// returned mode is empty unless the JSON request names one.
func decodeRoute(contentType string, data []byte) (*types.Route, string, error) {
	if f, ok := routefile.FormatForContentType(contentType); ok {
		route, err := routefile.Decode(f, data)
		if err != nil && !errors.Is(err, types.ErrNoPoints) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return route, "", err
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || (mediaType != "application/json" && mediaType != "text/plain") {
			return nil, "", fmt.Errorf("%w: content type %q", routefile.ErrUnsupportedFormat, contentType)
		}
	}

	var req analyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, "", fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if len(req.Points) == 0 {
		return nil, "", types.ErrNoPoints
	}
	if req.RouteType == "" {
		req.RouteType = types.RouteTypeCycling
	} else if rt, err := types.ParseRouteType(string(req.RouteType)); err == nil {
		req.RouteType = rt
	} else {
		return nil, "", err
	}

	route := req.Route
	return &route, req.Mode, nil
}

// modeOverride resolves the travel mode from the query, then the request
// body, then the route type.
func modeOverride(r *http.Request, route *types.Route, fromBody string) (roadtype.TravelMode, error) {
	name := r.URL.Query().Get("mode")
	if name == "" {
		name = fromBody
	}
	if name == "" {
		return roadtype.ModeForRouteType(route.RouteType), nil
	}
	mode, err := roadtype.ParseTravelMode(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return mode, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidCoordinate),
		errors.Is(err, types.ErrNoPoints),
		errors.Is(err, types.ErrInvalidRouteType),
		errors.Is(err, routefile.ErrUnsupportedFormat),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (a *API) sendJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "request_id", requestID(r), "error", err)
	}
}

func (a *API) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	a.sendJSON(w, r, status, errorBody{Code: status, Error: msg, RequestID: requestID(r)})
}
