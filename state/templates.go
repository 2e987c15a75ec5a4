package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/utils/templates"
)

const (
	templateTypeTemplateRecord             = 1
	templateTypeIPFIXOptionsTemplateRecord = 2
	templateTypeNFv9OptionsTemplateRecord  = 3
)

type templatesValue struct {
	TemplateType int         `json:"ttype"`
	Data         interface{} `json:"data"`
}

type templatesValueUnmarshal struct {
	TemplateType int             `json:"ttype"`
	Data         json.RawMessage `json:"data"`
}

func (t *templatesValue) UnmarshalJSON(bytes []byte) error {
	var v templatesValueUnmarshal
	err := json.Unmarshal(bytes, &v)
	if err != nil {
		return err
	}
	t.TemplateType = v.TemplateType
	switch v.TemplateType {
	case templateTypeTemplateRecord:
		var data netflow.TemplateRecord
		err = json.Unmarshal(v.Data, &data)
		t.Data = data
	case templateTypeIPFIXOptionsTemplateRecord:
		var data netflow.IPFIXOptionsTemplateRecord
		err = json.Unmarshal(v.Data, &data)
		t.Data = data
	case templateTypeNFv9OptionsTemplateRecord:
		var data netflow.NFv9OptionsTemplateRecord
		err = json.Unmarshal(v.Data, &data)
		t.Data = data
	default:
		return fmt.Errorf("unknown template type: %d", v.TemplateType)
	}
	return err
}

func newTemplatesValue(template interface{}) (templatesValue, error) {
	switch templatec := template.(type) {
	case netflow.TemplateRecord:
		return templatesValue{TemplateType: templateTypeTemplateRecord, Data: templatec}, nil
	case netflow.IPFIXOptionsTemplateRecord:
		return templatesValue{TemplateType: templateTypeIPFIXOptionsTemplateRecord, Data: templatec}, nil
	case netflow.NFv9OptionsTemplateRecord:
		return templatesValue{TemplateType: templateTypeNFv9OptionsTemplateRecord, Data: templatec}, nil
	}
	return templatesValue{}, fmt.Errorf("unknown template type: %s", reflect.TypeOf(template))
}

// TemplateState persists the template list of each session in an Engine.
type TemplateState struct {
	engine Engine
}

// NewTemplateState opens the engine of rawUrl.
func NewTemplateState(rawUrl string) (*TemplateState, error) {
	engine, err := OpenEngine(rawUrl)
	if err != nil {
		return nil, err
	}
	return &TemplateState{engine: engine}, nil
}

func (t *TemplateState) Load(session string) ([]interface{}, error) {
	raw, err := t.engine.Get(session)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, templates.ErrPersistedNotFound
	} else if err != nil {
		return nil, err
	}
	var values []templatesValue
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("session %s: %w", session, err)
	}
	list := make([]interface{}, len(values))
	for i, value := range values {
		list[i] = value.Data
	}
	return list, nil
}

func (t *TemplateState) Save(session string, list []interface{}) error {
	values := make([]templatesValue, 0, len(list))
	for _, template := range list {
		value, err := newTemplatesValue(template)
		if err != nil {
			return err
		}
		values = append(values, value)
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return t.engine.Set(session, raw)
}

func (t *TemplateState) Close() error {
	return t.engine.Close()
}
