//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/panel"
	"github.com/presemt/presemt/backend-go/internal/plane"
)

var (
	eng     *engine.Engine
	onPanel js.Value
)

func main() {
	var err error
	eng, err = engine.NewEngine(engine.Options{OnPanel: publishPanel})
	if err != nil {
		js.Global().Get("console").Call("error", "presemt engine: "+err.Error())
		return
	}

	// Create the engine API object
	presemtEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	presemtEngine.Set("loadDocument", js.FuncOf(loadDocument))
	presemtEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	presemtEngine.Set("setViewportSize", js.FuncOf(setViewportSize))
	presemtEngine.Set("handleTouch", js.FuncOf(handleTouch))
	presemtEngine.Set("createObject", js.FuncOf(createObject))
	presemtEngine.Set("removeObject", js.FuncOf(removeObject))
	presemtEngine.Set("updateText", js.FuncOf(updateText))
	presemtEngine.Set("updateSource", js.FuncOf(updateSource))
	presemtEngine.Set("configure", js.FuncOf(configure))
	presemtEngine.Set("setSelectionArmed", js.FuncOf(setSelectionArmed))
	presemtEngine.Set("cancelSelection", js.FuncOf(cancelSelection))
	presemtEngine.Set("alignSelected", js.FuncOf(alignSelected))
	presemtEngine.Set("togglePanel", js.FuncOf(togglePanel))
	presemtEngine.Set("closePanel", js.FuncOf(closePanel))
	presemtEngine.Set("setGrid", js.FuncOf(setGrid))
	presemtEngine.Set("transformViewport", js.FuncOf(transformViewport))
	presemtEngine.Set("resetViewport", js.FuncOf(resetViewport))
	presemtEngine.Set("onPanel", js.FuncOf(setOnPanel))

	// --- Queries (frontend ← backend) ---
	presemtEngine.Set("render", js.FuncOf(render))
	presemtEngine.Set("isDirty", js.FuncOf(isDirty))
	presemtEngine.Set("hitTest", js.FuncOf(hitTest))
	presemtEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	presemtEngine.Set("getDocument", js.FuncOf(getDocument))
	presemtEngine.Set("getSelection", js.FuncOf(getSelection))
	presemtEngine.Set("isSelectionArmed", js.FuncOf(isSelectionArmed))
	presemtEngine.Set("getPanel", js.FuncOf(getPanel))

	// Register on global scope
	js.Global().Set("presemtEngine", presemtEngine)

	// Signal that WASM is ready
	js.Global().Set("presemtWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

func publishPanel(st panel.State) {
	if onPanel.Type() != js.TypeFunction {
		return
	}
	data, _ := json.Marshal(st)
	onPanel.Invoke(string(data))
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	return result(eng.LoadDocumentJSON(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	id := "sess_local"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	eng.LoadSampleDocument(id)
	return nil
}

func setViewportSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetViewportSize(args[0].Float(), args[1].Float())
	return nil
}

// handleTouch(phase, id, x, y) where phase is "begin", "move" or "end"
// and id is the pointer id of the browser event.
func handleTouch(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return nil
	}
	ev := touch.Event{
		Sequence: touch.Sequence(args[1].Int()),
		X:        float32(args[2].Float()),
		Y:        float32(args[3].Float()),
	}
	switch args[0].String() {
	case "begin":
		ev.Type = touch.TypeBegin
	case "move":
		ev.Type = touch.TypeMove
	case "end":
		ev.Type = touch.TypeEnd
	default:
		return nil
	}
	eng.HandleTouch(ev)
	return nil
}

type createRequest struct {
	Kind     string      `json:"kind"`
	At       plane.Point `json:"at"`
	Follow   bool        `json:"follow"`
	TouchID  int64       `json:"touchId"`
	Text     string      `json:"text"`
	FontSize float64     `json:"fontSize"`
	Source   string      `json:"source"`
}

// createObject takes a JSON request and returns the new object's id.
func createObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("create request")
	}
	var req createRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return result(err)
	}
	pl := engine.Placement{At: req.At, Follow: req.Follow, Seq: touch.Sequence(req.TouchID)}

	var (
		obj *plane.Object
		err error
	)
	switch req.Kind {
	case "text":
		obj, err = eng.CreateText(pl, req.Text, req.FontSize)
	case "image":
		obj, err = eng.CreateImage(pl, req.Source)
	case "video":
		obj, err = eng.CreateVideo(pl, req.Source)
	case "localfile":
		obj, err = eng.FromLocalFile(pl, req.Source)
	default:
		return js.ValueOf(map[string]interface{}{"error": "unknown object kind " + req.Kind})
	}
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": obj.ID()})
}

func removeObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.RemoveObject(args[0].String())
	return nil
}

func updateText(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("object id and text")
	}
	size := 0.0
	if len(args) > 2 {
		size = args[2].Float()
	}
	return result(eng.UpdateText(args[0].String(), args[1].String(), size))
}

func updateSource(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("object id and source")
	}
	return result(eng.UpdateSource(args[0].String(), args[1].String()))
}

func configure(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("object id")
	}
	return result(eng.Configure(args[0].String()))
}

func setSelectionArmed(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetSelectionArmed(args[0].Truthy())
	return nil
}

func cancelSelection(this js.Value, args []js.Value) interface{} {
	eng.CancelSelection()
	return nil
}

func alignSelected(this js.Value, args []js.Value) interface{} {
	eng.AlignSelected()
	return nil
}

func togglePanel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("panel name")
	}
	return result(eng.TogglePanel(args[0].String()))
}

func closePanel(this js.Value, args []js.Value) interface{} {
	eng.ClosePanel()
	return nil
}

func setGrid(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("spacing and extent")
	}
	return result(eng.SetGrid(plane.Grid{Spacing: args[0].Float(), Extent: args[1].Float()}))
}

// transformViewport(cx, cy, panX, panY, factor, rotation)
func transformViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 6 {
		return missing("viewport gesture")
	}
	center := plane.Point{X: args[0].Float(), Y: args[1].Float()}
	pan := plane.Point{X: args[2].Float(), Y: args[3].Float()}
	return result(eng.TransformViewport(center, pan, args[4].Float(), args[5].Float()))
}

func resetViewport(this js.Value, args []js.Value) interface{} {
	eng.ResetViewport()
	return nil
}

func setOnPanel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		onPanel = js.Undefined()
		return nil
	}
	onPanel = args[0]
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Dirty())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(eng.HitTest(x, y))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.RectToJSON(eng.GetSelectionBounds()))
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.Selection())
	return js.ValueOf(string(data))
}

func isSelectionArmed(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectionArmed())
}

func getPanel(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.Panel())
	return js.ValueOf(string(data))
}
