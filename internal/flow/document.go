package flow

import (
	_ "embed"
	"fmt"

	"github.com/roach88/cdcflow/internal/canonical"
)

//go:embed template.json
var templateJSON []byte

// Document region and field names.
const (
	RegionServices    = "controllerServices"
	RegionProcessors  = "processors"
	RegionConnections = "connections"

	fieldID         = "id"
	fieldProperties = "properties"
	fieldSource     = "source"
	fieldDest       = "destination"
)

// Document is a parsed flow document.
type Document struct {
	root canonical.Object
}

// Parse decodes a flow document. Anything that is not a JSON object is a
// DriftError: the projector cannot repair a document it cannot read.
func Parse(data []byte) (*Document, error) {
	v, err := canonical.Parse(data)
	if err != nil {
		return nil, &DriftError{Detail: fmt.Sprintf("flow document is not valid JSON: %v", err)}
	}
	root, ok := v.(canonical.Object)
	if !ok {
		return nil, &DriftError{Detail: "flow document must be a JSON object"}
	}
	return &Document{root: root}, nil
}

// Template returns a fresh copy of the canonical flow.
func Template() *Document {
	doc, err := Parse(templateJSON)
	if err != nil {
		panic(fmt.Sprintf("flow: embedded template: %v", err))
	}
	return doc
}

// TemplateBytes returns the canonical flow as written by init-flow.
func TemplateBytes() []byte {
	data, err := Template().Bytes()
	if err != nil {
		panic(fmt.Sprintf("flow: embedded template: %v", err))
	}
	return data
}

// Bytes serializes the document canonically.
func (d *Document) Bytes() ([]byte, error) {
	return canonical.Marshal(d.root)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{root: canonical.Clone(d.root).(canonical.Object)}
}

// Processor returns the processor with the given id.
func (d *Document) Processor(id string) (canonical.Object, bool) {
	return d.element(RegionProcessors, id)
}

// Service returns the controller service with the given id.
func (d *Document) Service(id string) (canonical.Object, bool) {
	return d.element(RegionServices, id)
}

// ProcessorProperty returns a string property of a processor.
func (d *Document) ProcessorProperty(id, key string) (string, bool) {
	proc, ok := d.Processor(id)
	if !ok {
		return "", false
	}
	props, ok := proc.ObjectField(fieldProperties)
	if !ok {
		return "", false
	}
	return props.StringField(key)
}

// LookupProperties returns the sql-lookup-service properties.
func (d *Document) LookupProperties() (canonical.Object, bool) {
	svc, ok := d.Service(LookupService)
	if !ok {
		return nil, false
	}
	return svc.ObjectField(fieldProperties)
}

// Binding returns the init processor's sql_id.
func (d *Document) Binding() (string, bool) {
	return d.ProcessorProperty(InitProcessor, PropSQLID)
}

func (d *Document) element(region, id string) (canonical.Object, bool) {
	arr, ok := d.root.ArrayField(region)
	if !ok {
		return nil, false
	}
	for _, elem := range arr {
		obj, ok := elem.(canonical.Object)
		if !ok {
			continue
		}
		if got, _ := obj.StringField(fieldID); got == id {
			return obj, true
		}
	}
	return nil, false
}

// properties returns obj.properties, creating it when absent.
// created is true when the field was missing or not an object.
func properties(obj canonical.Object) (props canonical.Object, created bool) {
	if props, ok := obj.ObjectField(fieldProperties); ok {
		return props, false
	}
	props = canonical.Object{}
	obj[fieldProperties] = props
	return props, true
}
