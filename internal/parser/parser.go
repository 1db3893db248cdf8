// Package parser reads MSBuild project and .filters XML into item
// declarations.
package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/starford/projtree/internal/filters"
)

// ItemDecl is one item element of a project file, e.g.
// <ClCompile Include="src\**\*.cpp" Exclude="..." />.
type ItemDecl struct {
	Type          string
	Include       string
	Exclude       string
	Link          string
	LinkBase      string
	DependentUpon string
}

// skipped item types never describe files on disk.
var skipped = map[string]struct{}{
	"ProjectReference":     {},
	"PackageReference":     {},
	"Reference":            {},
	"ProjectConfiguration": {},
	"Filter":               {},
}

type document struct {
	XMLName    xml.Name    `xml:"Project"`
	ItemGroups []itemGroup `xml:"ItemGroup"`
}

type itemGroup struct {
	Items []item `xml:",any"`
}

type item struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Metadata []meta     `xml:",any"`
}

type meta struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// value returns metadata by name, attribute form first.
func (it item) value(name string) string {
	for _, a := range it.Attrs {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	for _, m := range it.Metadata {
		if m.XMLName.Local == name {
			return strings.TrimSpace(m.Value)
		}
	}
	return ""
}

func decode(data []byte) (*document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("parser: empty document")
	}
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parser: decode: %w", err)
	}
	return &doc, nil
}

// ParseProject returns the file-bearing item declarations of a project in
// document order.
func ParseProject(data []byte) ([]ItemDecl, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	var out []ItemDecl
	for _, g := range doc.ItemGroups {
		for _, it := range g.Items {
			if _, ok := skipped[it.XMLName.Local]; ok {
				continue
			}
			inc := it.value("Include")
			if inc == "" {
				continue
			}
			out = append(out, ItemDecl{
				Type:          it.XMLName.Local,
				Include:       inc,
				Exclude:       it.value("Exclude"),
				Link:          it.value("Link"),
				LinkBase:      it.value("LinkBase"),
				DependentUpon: it.value("DependentUpon"),
			})
		}
	}
	return out, nil
}

// ParseFilters returns the file-to-filter assignments of a .filters file.
// Filter definitions themselves carry no <Filter> child and are ignored.
func ParseFilters(data []byte) ([]filters.Declaration, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	var out []filters.Declaration
	for _, g := range doc.ItemGroups {
		for _, it := range g.Items {
			inc := it.value("Include")
			var filter string
			for _, m := range it.Metadata {
				if m.XMLName.Local == "Filter" {
					filter = strings.TrimSpace(m.Value)
				}
			}
			if inc == "" || filter == "" {
				continue
			}
			out = append(out, filters.Declaration{IncludePath: inc, FilterPath: filter})
		}
	}
	return out, nil
}
