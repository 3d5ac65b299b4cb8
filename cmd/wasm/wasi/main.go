//go:build wasip1

// Command gognl-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "tree": "<yaml tree>", "data": <any JSON value>, "value": <optional> }
//	stdout: { "result": <any JSON value> }    on success
//	        { "error":  "<message>", "code": "<error code>" }  on failure (exit code 1)
//
// When "value" is present the tree is an assignment target and the result
// is the updated data.
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gognl.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"tree":"{property: name}","data":{"name":"Alice"}}' | wasmtime gognl.wasm
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sandrolain/gognl"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext"
	"github.com/sandrolain/gognl/pkg/types"
)

type request struct {
	Tree  string           `json:"tree"`
	Data  any              `json:"data"`
	Value *json.RawMessage `json:"value,omitempty"`
}

type response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func fail(err error) {
	writeResponse(response{Error: err.Error(), Code: string(types.CodeOf(err))}, 1)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	opts := []evaluator.EvalOption{evaluator.WithConcurrency(false), ext.WithAll()}

	if req.Value != nil {
		var value any
		if err := json.Unmarshal(*req.Value, &value); err != nil {
			writeResponse(response{Error: "invalid value JSON: " + err.Error()}, 1)
		}
		node, err := gognl.Parse(req.Tree)
		if err != nil {
			fail(err)
		}
		if err := gognl.SetValue(node, req.Data, value, opts...); err != nil {
			fail(err)
		}
		writeResponse(response{Result: req.Data}, 0)
	}

	result, err := gognl.EvalYAML(context.Background(), req.Tree, req.Data, opts...)
	if err != nil {
		fail(err)
	}
	writeResponse(response{Result: result}, 0)
}
