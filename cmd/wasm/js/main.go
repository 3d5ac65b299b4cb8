//go:build js && wasm

// Command gognl-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gognl` object with the following API:
//
//	gognl.version()                          → string
//	gognl.eval(treeYAML, dataJSON)           → resultJSON  (throws on error)
//	gognl.assign(treeYAML, dataJSON, valueJSON) → dataJSON (throws on error)
//	gognl.parse(treeYAML)                    → { eval(dataJSON) → resultJSON, string() → string }
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gognl.wasm ./cmd/wasm/js/
//
// Usage in Node.js:
//
//	const gn = await load()
//	const result = gn.eval('{property: name}', JSON.stringify({name: 'Alice'}))
//	console.log(JSON.parse(result)) // 'Alice'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/gognl"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	panic(js.Global().Get("Error").New(msg))
}

func options() []evaluator.EvalOption {
	return []evaluator.EvalOption{evaluator.WithConcurrency(false), ext.WithAll()}
}

func decodeJSON(fn, what, src string) any {
	var v any
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		jsThrow(fmt.Sprintf("%s: invalid %s JSON: %v", fn, what, err))
	}
	return v
}

func encodeJSON(fn string, v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal result: %v", fn, err))
	}
	return string(out)
}

// jsEval implements gognl.eval(treeYAML, dataJSON) → resultJSON.
func jsEval(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		jsThrow("gognl.eval requires 2 arguments: tree (YAML string) and data (JSON string)")
	}
	data := decodeJSON("gognl.eval", "data", args[1].String())
	result, err := gognl.EvalYAML(context.Background(), args[0].String(), data, options()...)
	if err != nil {
		jsThrow(fmt.Sprintf("gognl.eval: %v", err))
	}
	return encodeJSON("gognl.eval", result)
}

// jsAssign implements gognl.assign(treeYAML, dataJSON, valueJSON) → dataJSON.
func jsAssign(_ js.Value, args []js.Value) any {
	if len(args) < 3 {
		jsThrow("gognl.assign requires 3 arguments: tree (YAML string), data and value (JSON strings)")
	}
	node, err := gognl.Parse(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gognl.assign: %v", err))
	}
	data := decodeJSON("gognl.assign", "data", args[1].String())
	value := decodeJSON("gognl.assign", "value", args[2].String())
	if err := gognl.SetValue(node, data, value, options()...); err != nil {
		jsThrow(fmt.Sprintf("gognl.assign: %v", err))
	}
	return encodeJSON("gognl.assign", data)
}

// jsParse implements gognl.parse(treeYAML) → { eval(dataJSON), string() }.
func jsParse(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("gognl.parse requires 1 argument: tree (YAML string)")
	}
	node, err := gognl.Parse(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("gognl.parse: %v", err))
	}

	ev := evaluator.New(options()...)

	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) any {
		if len(innerArgs) < 1 {
			jsThrow("parsed.eval requires 1 argument: data (JSON string)")
		}
		data := decodeJSON("parsed.eval", "data", innerArgs[0].String())
		r, e := ev.Eval(context.Background(), node, data)
		if e != nil {
			jsThrow(fmt.Sprintf("parsed.eval: %v", e))
		}
		return encodeJSON("parsed.eval", r)
	})
	stringFn := js.FuncOf(func(_ js.Value, _ []js.Value) any {
		return node.String()
	})

	return js.ValueOf(map[string]any{"eval": evalFn, "string": stringFn})
}

func main() {
	api := map[string]any{
		"eval":   js.FuncOf(jsEval),
		"assign": js.FuncOf(jsAssign),
		"parse":  js.FuncOf(jsParse),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) any {
			return gognl.Version()
		}),
	}
	js.Global().Set("gognl", js.ValueOf(api))

	// The JS event loop owns execution from here.
	select {}
}
