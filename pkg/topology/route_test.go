package topology

import (
	"testing"

	"github.com/nExtCamera/libuac/pkg/descriptors"
)

func acWith(input *descriptors.InputTerminalDescriptor, feature *descriptors.FeatureUnitDescriptor, output *descriptors.OutputTerminalDescriptor) *descriptors.AudioControlInterface {
	ac := &descriptors.AudioControlInterface{
		Header:          &descriptors.ACHeaderDescriptor{},
		InputTerminals:  []*descriptors.InputTerminalDescriptor{input},
		OutputTerminals: []*descriptors.OutputTerminalDescriptor{output},
		Units:           []*descriptors.Unit{{UnitID: feature.UnitID, Kind: descriptors.UnitKind{Feature: feature}}},
	}
	return ac
}

func TestBuildRouteMinimalTopology(t *testing.T) {
	input := &descriptors.InputTerminalDescriptor{TerminalID: 1, TerminalType: descriptors.TerminalTypeMicrophone}
	feature := &descriptors.FeatureUnitDescriptor{UnitID: 2, SourceID: 1}
	output := &descriptors.OutputTerminalDescriptor{TerminalID: 3, TerminalType: descriptors.TerminalTypeUSBStreaming, SourceID: 2}

	g, routes := Build(acWith(input, feature, output))
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	route := routes[0]
	if route.Malformed {
		t.Fatal("did not expect route to be malformed")
	}
	if len(route.Nodes) != 3 {
		t.Fatalf("expected 3 nodes in route, got %d: %v", len(route.Nodes), route.Nodes)
	}
	if !route.ContainsTerminal(g, descriptors.TerminalTypeMicrophone) {
		t.Fatal("expected route to contain the microphone input terminal")
	}
	if route.ContainsTerminal(g, descriptors.TerminalTypeSpeaker) {
		t.Fatal("did not expect route to contain a speaker terminal")
	}
	if !route.ContainsTerminal(g, descriptors.TerminalTypeInputUndefined) {
		t.Fatal("expected wildcard family match against the input terminal family")
	}
	if !route.ContainsTerminal(g, descriptors.TerminalTypeUSBStreaming) {
		t.Fatal("expected route to contain its own output terminal")
	}
	if !route.ContainsTerminal(g, descriptors.TerminalTypeUndefined) {
		t.Fatal("expected wildcard family match against the output terminal's own family")
	}
	units := route.Units(g)
	if len(units) != 1 || units[0].ID != 2 {
		t.Fatalf("expected route to pass through feature unit 2, got %+v", units)
	}
}

func TestBuildRouteTruncatesCycle(t *testing.T) {
	// a mixer unit that (incorrectly) lists itself as a source must not
	// loop forever, and must flag the route malformed.
	mixer := &descriptors.MixerUnitDescriptor{UnitID: 5, SourceID: []uint8{5}}
	output := &descriptors.OutputTerminalDescriptor{TerminalID: 3, TerminalType: descriptors.TerminalTypeUSBStreaming, SourceID: 5}
	ac := &descriptors.AudioControlInterface{
		Header:          &descriptors.ACHeaderDescriptor{},
		OutputTerminals: []*descriptors.OutputTerminalDescriptor{output},
		Units:           []*descriptors.Unit{{UnitID: 5, Kind: descriptors.UnitKind{Mixer: mixer}}},
	}

	_, routes := Build(ac)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if !routes[0].Malformed {
		t.Fatal("expected route through a self-referential mixer to be flagged malformed")
	}
}

func TestBuildKeepsOutputTerminalWithUnresolvedSource(t *testing.T) {
	output := &descriptors.OutputTerminalDescriptor{TerminalID: 3, TerminalType: descriptors.TerminalTypeUSBStreaming, SourceID: 99}
	ac := &descriptors.AudioControlInterface{
		Header:          &descriptors.ACHeaderDescriptor{},
		OutputTerminals: []*descriptors.OutputTerminalDescriptor{output},
	}
	g, routes := Build(ac)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	// the unresolved source id simply contributes no edge; the route is
	// just the root with no sources, not an error.
	if len(routes[0].Nodes) != 1 {
		t.Fatalf("expected a single-node route, got %v", routes[0].Nodes)
	}
	if len(g.Nodes[routes[0].Output].Sources) != 0 {
		t.Fatalf("expected no resolved sources, got %v", g.Nodes[routes[0].Output].Sources)
	}
}
