package model

import (
	"fmt"
	"sort"
)

// LegSpec names the input collection of one leg and the column holding its
// quality score.
type LegSpec struct {
	Collection  string
	ScoreColumn string
}

// Channel describes which collections form the two legs of a pair.
// Leg1's score is read as isolation and Leg2's as discriminator.
type Channel struct {
	Name string
	Leg1 LegSpec
	Leg2 LegSpec
}

// Built-in channels.
var (
	ETau = Channel{
		Name: "etau",
		Leg1: LegSpec{Collection: "Electron", ScoreColumn: "pfRelIso03_all"},
		Leg2: LegSpec{Collection: "Tau", ScoreColumn: "rawDeepTau2018v2p5VSjet"},
	}
	MuTau = Channel{
		Name: "mutau",
		Leg1: LegSpec{Collection: "Muon", ScoreColumn: "pfRelIso04_all"},
		Leg2: LegSpec{Collection: "Tau", ScoreColumn: "rawDeepTau2018v2p5VSjet"},
	}
)

var channels = map[string]Channel{
	ETau.Name:  ETau,
	MuTau.Name: MuTau,
}

// ChannelByName looks up a built-in channel.
func ChannelByName(name string) (Channel, error) {
	ch, ok := channels[name]
	if !ok {
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// ChannelNames lists the built-in channels in sorted order.
func ChannelNames() []string {
	names := make([]string, 0, len(channels))
	for n := range channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Uses returns the input columns read for this channel, as Collection.field.
func (c Channel) Uses() []string {
	var out []string
	for _, leg := range []LegSpec{c.Leg1, c.Leg2} {
		for _, f := range KinematicFields {
			out = append(out, leg.Collection+"."+string(f))
		}
		out = append(out, leg.Collection+"."+leg.ScoreColumn)
	}
	out = append(out, "MET.pt", "MET.phi")
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
