//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/routemeta/internal/classifier"
	"github.com/MeKo-Tech/routemeta/internal/datasource"
	"github.com/MeKo-Tech/routemeta/internal/metadata"
	"github.com/MeKo-Tech/routemeta/internal/pipeline"
	"github.com/MeKo-Tech/routemeta/internal/roadtype"
	"github.com/MeKo-Tech/routemeta/internal/routefile"
	"github.com/MeKo-Tech/routemeta/internal/types"
)

// There is no network access to Overpass from here, so routes are classified
// against the synthetic source. Useful for previewing the segment rendering.
var engine = pipeline.NewEngine(
	classifier.NewTagged(datasource.NewSyntheticWaySource(1, 0), nil, nil),
	pipeline.Config{Workers: 4},
)

// AnalyzeRequest is a route analysis request from JS
type AnalyzeRequest struct {
	// Route is a route JSON document, a GeoJSON feature or a GPX document.
	Route  string `json:"route"`
	Format string `json:"format"`
	Mode   string `json:"mode"`
}

type AnalyzeResponse struct {
	Route  *types.Route     `json:"route"`
	Result *pipeline.Result `json:"result"`
}

func errorValue(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

// toJS converts v into a plain JS object via JSON.
func toJS(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorValue("failed to encode response: %v", err)
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}

func decodeRoute(req AnalyzeRequest) (*types.Route, error) {
	if req.Format == "" || req.Format == "json" {
		var route types.Route
		if err := json.Unmarshal([]byte(req.Route), &route); err != nil {
			return nil, fmt.Errorf("failed to parse route: %w", err)
		}
		return &route, nil
	}
	f, err := routefile.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	return routefile.Decode(f, []byte(req.Route))
}

// analyze is called from JavaScript with a JSON encoded AnalyzeRequest and
// returns a Promise of an AnalyzeResponse
func analyze(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("missing arguments")
	}

	var req AnalyzeRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return errorValue("failed to parse request: %v", err)
	}

	route, err := decodeRoute(req)
	if err != nil {
		return errorValue("%v", err)
	}
	if route.RouteType == "" {
		route.RouteType = types.RouteTypeCycling
	}

	mode := roadtype.ModeForRouteType(route.RouteType)
	if req.Mode != "" {
		if mode, err = roadtype.ParseTravelMode(req.Mode); err != nil {
			return errorValue("%v", err)
		}
	}

	// Classification waits on goroutines, so it must not run on the event
	// loop. The result is delivered through a Promise.
	handler := js.FuncOf(func(this js.Value, p []js.Value) interface{} {
		resolve := p[0]
		go func() {
			res, err := engine.AnnotateMode(context.Background(), route, mode)
			if err != nil {
				resolve.Invoke(toJS(errorValue("%v", err)))
				return
			}
			resolve.Invoke(toJS(AnalyzeResponse{Route: route, Result: res}))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}

// decodeMetadata reports the state of a stored metadata blob
func decodeMetadata(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue("missing arguments")
	}

	m, state := metadata.Decode(args[0].String())
	resp := map[string]any{"state": state, "message": state.Message()}
	if state == metadata.StateOK {
		resp["metadata"] = m
	}
	return toJS(resp)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("routemetaAnalyze", js.FuncOf(analyze))
	js.Global().Set("routemetaDecodeMetadata", js.FuncOf(decodeMetadata))

	fmt.Println("routemeta WASM module loaded")
	<-c
}
