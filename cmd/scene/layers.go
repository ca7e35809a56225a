package scene

import "strings"

// Layer names one of the five image planes.
type Layer string

const (
	LayerBG  Layer = "bg"
	LayerSTA Layer = "sta"
	LayerACT Layer = "act"
	LayerEXP Layer = "exp"
	LayerCG  Layer = "cg"
)

// Layers lists every layer in composition order (back to front).
var Layers = []Layer{LayerBG, LayerSTA, LayerACT, LayerEXP, LayerCG}

const (
	DefaultAssetRoot = "assets"
	ImageExt         = ".png"
)

// LayerState is the visibility decision for one layer. Source is empty when
// the layer is hidden.
type LayerState struct {
	Layer   Layer
	Visible bool
	Source  string
}

// Composition is the full decision for an event, one entry per layer in
// Layers order.
type Composition []LayerState

// Get returns the state of a layer.
func (c Composition) Get(layer Layer) LayerState {
	for _, s := range c {
		if s.Layer == layer {
			return s
		}
	}
	return LayerState{Layer: layer}
}

// Visible returns the visible layers in composition order.
func (c Composition) Visible() []Layer {
	var out []Layer
	for _, s := range c {
		if s.Visible {
			out = append(out, s.Layer)
		}
	}
	return out
}

// Summary renders the composition as "cg" or e.g. "bg+sta+exp", "-" when empty.
func (c Composition) Summary() string {
	cg := c.Get(LayerCG)
	if cg.Visible {
		return "cg"
	}
	visible := c.Visible()
	if len(visible) == 0 {
		return "-"
	}
	parts := make([]string, len(visible))
	for i, l := range visible {
		parts[i] = string(l)
	}
	return strings.Join(parts, "+")
}

// Resolve decides which layers an event shows. A CG replaces the whole
// normal stack; otherwise each normal layer is shown iff its code is set and
// does not end in NoneSuffix.
func Resolve(ev Event, assetRoot string) Composition {
	comp := make(Composition, 0, len(Layers))

	if ev.HasCG() {
		for _, l := range Layers {
			if l == LayerCG {
				comp = append(comp, LayerState{Layer: l, Visible: true, Source: Source(assetRoot, l, ev.CG)})
			} else {
				comp = append(comp, LayerState{Layer: l})
			}
		}
		return comp
	}

	for _, l := range Layers {
		code := ev.Code(l)
		if l == LayerCG || isNone(code) {
			comp = append(comp, LayerState{Layer: l})
			continue
		}
		comp = append(comp, LayerState{Layer: l, Visible: true, Source: Source(assetRoot, l, code)})
	}
	return comp
}

// Source builds "{assetRoot}/{layer}/{code}.png".
func Source(assetRoot string, layer Layer, code string) string {
	root := strings.TrimRight(assetRoot, "/")
	if root == "" {
		return string(layer) + "/" + code + ImageExt
	}
	return root + "/" + string(layer) + "/" + code + ImageExt
}
