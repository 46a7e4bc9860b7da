//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorParseFailed
	ErrorEncodeFailed
)

// abrAnalyze detects landmarks in one sweep and measures them.
// Arguments: samples (Array or Float64Array, microvolts), options (object, optional)
// Returns: {error: number, data: object | string}
func abrAnalyze(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: samples, [options]")
	}

	samples, err := floatArray(args[0], "samples")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(samples) == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "samples is empty")
	}

	st, err := settingsArg(args, 1)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	a := abrwave.AnalyzeRecord(waveform.Record{Samples: samples}, st)
	return makeDataResponse(a)
}

// abrThreshold estimates the hearing threshold of one frequency.
// Arguments: sweeps (Array of sample arrays), intensities (Array, dB), options (object, optional)
// Returns: {error: number, data: {threshold: {threshold, determined, reason, ...}, analyses} | string}
func abrThreshold(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: sweeps, intensities, [options]")
	}

	sweepsJS, intensitiesJS := args[0], args[1]
	if sweepsJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "sweeps must be an Array")
	}
	intensities, err := floatArray(intensitiesJS, "intensities")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if sweepsJS.Length() != len(intensities) {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Got %d sweeps but %d intensities", sweepsJS.Length(), len(intensities)))
	}

	st, err := settingsArg(args, 2)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	records := make([]waveform.Record, len(intensities))
	for i := range records {
		samples, err := floatArray(sweepsJS.Index(i), fmt.Sprintf("sweeps[%d]", i))
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		records[i] = waveform.Record{Intensity: intensities[i], Samples: samples}
	}

	report := abrwave.BuildReport("browser", 0, records, st)
	for i := range report.Analyses {
		report.Analyses[i].Samples = nil
	}

	return makeDataResponse(map[string]any{
		"threshold": report.Threshold,
		"analyses":  report.Analyses,
	})
}

// abrReadARF decodes an ARF file held in a Uint8Array.
// Arguments: bytes (Uint8Array), variant ("rz" | "rp", optional), kind ("level" | "attenuation", optional)
// Returns: {error: number, data: Array<{frequency, intensity, samples}> | string}
func abrReadARF(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: bytes (Uint8Array), [variant], [kind]")
	}

	variant := arf.VariantRZ
	if len(args) > 1 && args[1].Type() == js.TypeString {
		v, err := arf.ParseVariant(args[1].String())
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		variant = v
	}
	kind := waveform.Level
	if len(args) > 2 && args[2].Type() == js.TypeString {
		k, err := waveform.ParseIntensityKind(args[2].String())
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		kind = k
	}

	buf := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(buf, args[0])

	file, err := arf.Read(bytes.NewReader(buf), variant)
	if err != nil {
		return makeErrorResponse(ErrorParseFailed, fmt.Sprintf("Failed to read ARF: %v", err))
	}

	set := waveform.FromARF("browser", file, kind)
	type recordDTO struct {
		Frequency float64   `json:"frequency"`
		Intensity float64   `json:"intensity"`
		Samples   []float64 `json:"samples"`
	}
	out := make([]recordDTO, len(set.Records))
	for i, r := range set.Records {
		out[i] = recordDTO{Frequency: r.Frequency, Intensity: r.Intensity, Samples: r.Samples}
	}
	return makeDataResponse(out)
}

func floatArray(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float64Array", name)
	}

	length := v.Length()
	out := make([]float64, length)
	for i := 0; i < length; i++ {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		out[i] = val.Float()
	}
	return out, nil
}

// settingsArg reads an options object through JSON so it accepts the same
// field names as the HTTP API.
func settingsArg(args []js.Value, i int) (abrwave.Settings, error) {
	st := abrwave.DefaultSettings()
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return st, nil
	}
	if args[i].Type() != js.TypeObject {
		return st, fmt.Errorf("options must be an object")
	}

	raw := js.Global().Get("JSON").Call("stringify", args[i]).String()
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, fmt.Errorf("invalid options: %v", err)
	}
	return st, st.Validate()
}

func makeDataResponse(data any) js.Value {
	b, err := json.Marshal(data)
	if err != nil {
		return makeErrorResponse(ErrorEncodeFailed, fmt.Sprintf("Failed to encode result: %v", err))
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", js.Global().Get("JSON").Call("parse", string(b)))
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 ABRWave WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("abrAnalyze", js.FuncOf(abrAnalyze))
	js.Global().Set("abrThreshold", js.FuncOf(abrThreshold))
	js.Global().Set("abrReadARF", js.FuncOf(abrReadARF))

	if !console.IsUndefined() {
		console.Call("log", "📝 abrAnalyze, abrThreshold and abrReadARF registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ ABRWave WASM module loaded and ready")
	}

	<-done
}
