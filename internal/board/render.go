package board

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var centralServers = []string{"HQ", "R&D", "Archives"}

// ServerNames returns every server with ice or root cards. The central
// servers always come first, followed by remotes in numeric order.
func (b *Board) ServerNames() []string {
	names := append([]string(nil), centralServers...)
	seen := map[string]bool{"HQ": true, "R&D": true, "Archives": true}

	var remotes []string
	for name := range b.Servers {
		if !seen[name] {
			seen[name] = true
			remotes = append(remotes, name)
		}
	}
	for name := range b.Roots {
		if !seen[name] {
			seen[name] = true
			remotes = append(remotes, name)
		}
	}
	sort.Slice(remotes, func(i, j int) bool {
		ri, rj := remoteOrder(remotes[i]), remoteOrder(remotes[j])
		if ri != rj {
			return ri < rj
		}
		return remotes[i] < remotes[j]
	})
	return append(names, remotes...)
}

// remoteOrder sorts "S<n>" by n and everything else after them.
func remoteOrder(name string) int {
	if strings.HasPrefix(name, "S") {
		if n, err := strconv.Atoi(name[1:]); err == nil {
			return n
		}
	}
	return 99
}

// Render returns a plain-text dump of the board.
func (b *Board) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Game State at Turn %d ---\n", b.CurrentTurn)
	fmt.Fprintf(&sb, "Score: Corp %d | Runner %d\n", b.CorpScore, b.RunnerScore)
	sb.WriteString("\n[ Corp Board ]\n")

	for _, server := range b.ServerNames() {
		// Ice is stored innermost first and shown outermost first.
		slots := b.Servers[server]
		ice := make([]string, 0, len(slots))
		for i := len(slots) - 1; i >= 0; i-- {
			ice = append(ice, renderIce(slots[i]))
		}
		var root []string
		for _, card := range b.Roots[server] {
			root = append(root, renderRoot(card))
		}
		line := fmt.Sprintf("%-10s : %s %s", server, strings.Join(ice, " "), strings.Join(root, ""))
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteByte('\n')
	}

	sb.WriteString("\n[ Runner Rig ]\n")
	sb.WriteString(strings.Join(b.RunnerRig, ", "))
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderIce(slot IceSlot) string {
	switch {
	case slot.Name != Unknown:
		return "[" + slot.Name + "]"
	case slot.Rezzed:
		return "[REZ ice]"
	default:
		return "[UNK ice]"
	}
}

func renderRoot(card RootCard) string {
	s := "[Unknown]"
	if card.Name != Unknown {
		s = "[" + card.Name + "]"
	}
	if card.Advancement > 0 {
		s += fmt.Sprintf("(%d adv)", card.Advancement)
	}
	return s
}

// ServerState is one server in a Snapshot.
type ServerState struct {
	Name string     `json:"name" yaml:"name"`
	Ice  []IceSlot  `json:"ice,omitempty" yaml:"ice,omitempty"`
	Root []RootCard `json:"root,omitempty" yaml:"root,omitempty"`
}

// Snapshot is an ordered, serializable view of a Board.
type Snapshot struct {
	Turn        int           `json:"turn" yaml:"turn"`
	CorpScore   int           `json:"corp_score" yaml:"corp_score"`
	RunnerScore int           `json:"runner_score" yaml:"runner_score"`
	Servers     []ServerState `json:"servers" yaml:"servers"`
	RunnerRig   []string      `json:"runner_rig" yaml:"runner_rig"`
}

// Snapshot captures the board with servers in display order.
func (b *Board) Snapshot() Snapshot {
	snap := Snapshot{
		Turn:        b.CurrentTurn,
		CorpScore:   b.CorpScore,
		RunnerScore: b.RunnerScore,
		RunnerRig:   append([]string{}, b.RunnerRig...),
	}
	for _, name := range b.ServerNames() {
		snap.Servers = append(snap.Servers, ServerState{
			Name: name,
			Ice:  append([]IceSlot(nil), b.Servers[name]...),
			Root: append([]RootCard(nil), b.Roots[name]...),
		})
	}
	return snap
}

// YAML renders the snapshot as YAML.
func (b *Board) YAML() (string, error) {
	data, err := yaml.Marshal(b.Snapshot())
	if err != nil {
		return "", fmt.Errorf("failed to marshal board: %w", err)
	}
	return string(data), nil
}
