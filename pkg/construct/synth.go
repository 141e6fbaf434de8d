package construct

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/sirupsen/logrus"
)

// Template is the desired state of a stack.
type Template struct {
	Description string                      `json:"Description,omitempty"`
	Resources   map[string]TemplateResource `json:"Resources"`
}

// TemplateResource is one declared resource in a Template.
type TemplateResource struct {
	Type       string            `json:"Type"`
	Properties map[string]any    `json:"Properties,omitempty"`
	DependsOn  []string          `json:"DependsOn,omitempty"`
	Metadata   map[string]string `json:"Metadata,omitempty"`
}

// AssetManifest lists what has to be published before the template is
// applied, keyed by asset hash.
type AssetManifest struct {
	Assets map[string]AssetEntry `json:"assets"`
}

// AssetEntry is a single asset to publish.
type AssetEntry struct {
	Source    string         `json:"source"`
	Packaging AssetPackaging `json:"packaging"`
	Bucket    string         `json:"bucket"`
	ObjectKey string         `json:"objectKey"`
}

// Synthesize validates the stack and renders its template and asset manifest.
func (s *Stack) Synthesize() (*Template, *AssetManifest, error) {
	diags := s.node.Validate()
	for _, d := range diags {
		if d.Severity == diag.Warning {
			s.logger().WithField("path", d.Detail).Warn(d.Summary)
		}
	}

	tpl := &Template{Description: s.Description, Resources: map[string]TemplateResource{}}
	resources := s.Resources()
	for _, r := range resources {
		tpl.Resources[r.LogicalID()] = TemplateResource{}
	}

	for _, r := range resources {
		props, err := renderProperties(r.Properties)
		if err != nil {
			return nil, nil, fmt.Errorf("rendering %s: %w", r.node.Path(), err)
		}

		deps := map[string]bool{}
		for _, d := range r.dependsOn {
			deps[d.LogicalID()] = true
		}
		walkStrings(props, func(v string) string {
			for _, ref := range references(v) {
				if _, ok := tpl.Resources[ref]; !ok {
					diags = append(diags, diag.Diagnostic{
						Severity: diag.Error,
						Summary:  fmt.Sprintf("reference to undeclared resource %q", ref),
						Detail:   r.node.Path(),
					})
					continue
				}
				deps[ref] = true
			}
			return s.Resolve(v)
		})
		delete(deps, r.LogicalID())

		tr := TemplateResource{
			Type:       r.Type,
			Properties: props,
			Metadata:   map[string]string{"raysouz:path": r.node.Path()},
		}
		for id := range deps {
			tr.DependsOn = append(tr.DependsOn, id)
		}
		sort.Strings(tr.DependsOn)
		tpl.Resources[r.LogicalID()] = tr

		s.logger().WithFields(logrus.Fields{
			"stack": s.Name(),
			"type":  r.Type,
			"id":    r.LogicalID(),
		}).Debug("resource declared")
	}

	if err := DiagnosticsError(diags); err != nil {
		return nil, nil, fmt.Errorf("stack %s: %w", s.Name(), err)
	}

	manifest := &AssetManifest{Assets: map[string]AssetEntry{}}
	for _, a := range s.Assets() {
		manifest.Assets[a.Hash] = AssetEntry{
			Source:    a.Path,
			Packaging: a.Packaging,
			Bucket:    s.Resolve(a.Bucket()),
			ObjectKey: a.ObjectKey(),
		}
	}
	return tpl, manifest, nil
}

func (s *Stack) logger() logrus.FieldLogger {
	if s.app != nil && s.app.Logger != nil {
		return s.app.Logger
	}
	return logrus.StandardLogger()
}

// CloudAssembly is the output of App.Synth.
type CloudAssembly struct {
	Dir       string
	Templates map[string]*Template
	Assets    map[string]*AssetManifest
}

// Synth synthesizes every stack. When OutDir is set the templates, manifests
// and staged assets are written there.
func (a *App) Synth() (*CloudAssembly, error) {
	asm := &CloudAssembly{
		Dir:       a.OutDir,
		Templates: map[string]*Template{},
		Assets:    map[string]*AssetManifest{},
	}
	for _, s := range a.Stacks() {
		tpl, manifest, err := s.Synthesize()
		if err != nil {
			return nil, err
		}
		asm.Templates[s.Name()] = tpl
		asm.Assets[s.Name()] = manifest

		if a.OutDir == "" {
			continue
		}
		if err := a.write(s, tpl, manifest); err != nil {
			return nil, err
		}
		a.Logger.WithFields(logrus.Fields{
			"stack":     s.Name(),
			"resources": len(tpl.Resources),
			"assets":    len(manifest.Assets),
			"out":       a.OutDir,
		}).Info("stack synthesized")
	}
	return asm, nil
}

func (a *App) write(s *Stack, tpl *Template, manifest *AssetManifest) error {
	if err := os.MkdirAll(a.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", a.OutDir, err)
	}
	for _, asset := range s.Assets() {
		if _, err := asset.stage(a.OutDir); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(a.OutDir, s.Name()+".template.json"), tpl); err != nil {
		return err
	}
	return writeJSON(filepath.Join(a.OutDir, s.Name()+".assets.json"), manifest)
}

// MarshalTemplate renders tpl the way Synth writes it.
func MarshalTemplate(tpl *Template) ([]byte, error) {
	b, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(name, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// renderProperties turns an SDK request into a generic map without nulls,
// empty collections and unset string fields. Map entries and slice elements
// are caller data and keep empty strings.
func renderProperties(props any) (map[string]any, error) {
	if props == nil {
		return nil, nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	pruned, _ := prune(out, reflect.TypeOf(props), true).(map[string]any)
	return pruned, nil
}

// prune walks v with typ, the Go type it was marshalled from (nil when unknown).
// field reports whether v is a struct field.
func prune(v any, typ reflect.Type, field bool) any {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			var et reflect.Type
			isField := false
			if typ != nil {
				switch typ.Kind() {
				case reflect.Struct:
					if f, ok := typ.FieldByName(k); ok {
						et = f.Type
					}
					isField = true
				case reflect.Map:
					et = typ.Elem()
				}
			}
			if p := prune(e, et, isField); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		var et reflect.Type
		if typ != nil && (typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array) {
			et = typ.Elem()
		}
		out := t[:0]
		for _, e := range t {
			if p := prune(e, et, false); p != nil {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if t == "" && field {
			return nil
		}
		return t
	default:
		return v
	}
}

// walkStrings replaces every string leaf of v with fn(leaf).
func walkStrings(v any, fn func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = walkStrings(e, fn)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = walkStrings(e, fn)
		}
		return t
	case string:
		return fn(t)
	default:
		return v
	}
}
