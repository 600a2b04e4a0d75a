package spec

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Extensions lists the file extensions recognized as spec documents.
var Extensions = []string{".yaml", ".yml", ".json", ".cue"}

// document mirrors the on-disk layout for CUE decoding.
type document struct {
	Table struct {
		Name       string   `json:"name"`
		Schema     string   `json:"schema"`
		PrimaryKey string   `json:"primary_key"`
		CDCKey     string   `json:"cdc_key"`
		Columns    []string `json:"columns"`
	} `json:"table"`
	Range struct {
		Options []string `json:"options"`
		Default string   `json:"default"`
	} `json:"range"`
	Elasticsearch struct {
		Index   string `json:"index"`
		IDField string `json:"id_field"`
	} `json:"elasticsearch"`
}

// Load reads and validates the spec at path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: ErrNotFound, Path: path, Message: "no such file"}
		}
		return nil, &Error{Kind: ErrNotFound, Path: path, Message: fmt.Sprintf("reading spec: %v", err)}
	}
	return Parse(path, data)
}

// Parse validates spec content. The path selects the decoder by extension
// and is checked against the table name.
func Parse(path string, data []byte) (*Spec, error) {
	ctx := cuecontext.New()

	v, err := decode(ctx, path, data)
	if err != nil {
		return nil, err
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Spec"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling embedded spec schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, schemaError(path, err)
	}

	var doc document
	if err := unified.Decode(&doc); err != nil {
		return nil, schemaError(path, err)
	}

	s := fromDocument(path, &doc)
	if errs := Check(s); len(errs) > 0 {
		first := errs[0]
		first.Path = path
		first.Pos = positionOf(v, first.Field)
		return nil, first
	}
	return s, nil
}

// decode turns raw bytes into a CUE value according to the file extension.
func decode(ctx *cue.Context, path string, data []byte) (cue.Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cue.Value{}, &Error{Kind: ErrMalformed, Path: path, Message: err.Error()}
		}
		if raw == nil {
			return cue.Value{}, &Error{Kind: ErrMalformed, Path: path, Message: "empty document"}
		}
		v := ctx.Encode(raw)
		if err := v.Err(); err != nil {
			return cue.Value{}, &Error{Kind: ErrMalformed, Path: path, Message: err.Error()}
		}
		return v, nil
	case ".json", ".cue":
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, cueError(ErrMalformed, path, err)
		}
		if v.IncompleteKind() != cue.StructKind {
			return cue.Value{}, &Error{Kind: ErrMalformed, Path: path, Message: "top-level value must be a struct"}
		}
		return v, nil
	default:
		return cue.Value{}, &Error{
			Kind:    ErrMalformed,
			Path:    path,
			Message: fmt.Sprintf("unsupported spec extension %q (want one of %s)", filepath.Ext(path), strings.Join(Extensions, ", ")),
		}
	}
}

func fromDocument(path string, doc *document) *Spec {
	s := &Spec{
		Path: path,
		Table: Table{
			Name:       doc.Table.Name,
			Schema:     doc.Table.Schema,
			PrimaryKey: doc.Table.PrimaryKey,
			CDCKey:     doc.Table.CDCKey,
			Columns:    doc.Table.Columns,
		},
		Range: RangeOptions{
			Default: Range(doc.Range.Default),
		},
		Elasticsearch: Elasticsearch{
			Index:   doc.Elasticsearch.Index,
			IDField: doc.Elasticsearch.IDField,
		},
	}
	for _, opt := range doc.Range.Options {
		s.Range.Options = append(s.Range.Options, Range(opt))
	}
	return s
}

// schemaError reports the first CUE unification failure as a schema violation.
func schemaError(path string, err error) *Error {
	e := cueError(ErrInvalid, path, err)
	e.Rule = RuleSchema
	if e.Field == "" {
		e.Field = "."
	}
	return e
}

func cueError(kind error, path string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Kind: kind, Path: path, Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	out := &Error{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Pos:     first.Position(),
	}
	if kind == ErrInvalid {
		out.Field = strings.Join(first.Path(), ".")
	}
	return out
}

// positionOf resolves a dotted field such as "range.options[1]" to its
// source position. Values built from YAML carry no positions.
func positionOf(v cue.Value, field string) token.Pos {
	var sels []cue.Selector
	for _, part := range strings.Split(field, ".") {
		name, idx, hasIdx := strings.Cut(part, "[")
		sels = append(sels, cue.Str(name))
		if hasIdx {
			n, err := strconv.Atoi(strings.TrimSuffix(idx, "]"))
			if err != nil {
				return token.NoPos
			}
			sels = append(sels, cue.Index(n))
		}
	}
	fv := v.LookupPath(cue.MakePath(sels...))
	if !fv.Exists() {
		return token.NoPos
	}
	return fv.Pos()
}
