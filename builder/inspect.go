package builder

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chkforge/chkforge/checklist"
	"github.com/chkforge/chkforge/inject"
)

// Report describes how a template would receive a document: per-slot
// marker and pattern presence, plus a small element inventory.
type Report struct {
	Title    string              `json:"title,omitempty"`
	Slots    []inject.SlotReport `json:"slots"`
	Elements ElementCounts       `json:"elements"`
	IDs      []string            `json:"ids,omitempty"`
}

// ElementCounts tallies the template elements builds care about.
type ElementCounts struct {
	Scripts int `json:"scripts"`
	Divs    int `json:"divs"`
	Inputs  int `json:"inputs"`
}

// Inspect analyzes templateText without substituting anything. Slot
// values never matter here, so an empty document drives the slot table.
func (b *Builder) Inspect(templateText string) (*Report, error) {
	slots, err := inject.Inspect(templateText, checklist.Document{}, b.injectOpts)
	if err != nil {
		return nil, err
	}
	rep := &Report{Slots: slots}

	root, err := html.Parse(strings.NewReader(templateText))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	ids := map[string]bool{}
	walkTemplate(root, rep, ids)
	for id := range ids {
		rep.IDs = append(rep.IDs, id)
	}
	sort.Strings(rep.IDs)
	return rep, nil
}

func walkTemplate(n *html.Node, rep *Report, ids map[string]bool) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script:
			rep.Elements.Scripts++
		case atom.Div:
			rep.Elements.Divs++
		case atom.Input:
			rep.Elements.Inputs++
		case atom.Title:
			if rep.Title == "" && n.FirstChild != nil {
				rep.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val != "" {
				ids[a.Val] = true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTemplate(c, rep, ids)
	}
}
