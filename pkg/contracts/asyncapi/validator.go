package asyncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/kafka"
)

// eventTypeExtension ties a component schema to the CloudEvent type it describes
const eventTypeExtension = "x-event-type"

// EventValidator validates CloudEvent payloads against AsyncAPI component schemas.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// Spec is the subset of an AsyncAPI document the validator reads
type Spec struct {
	AsyncAPI   string             `yaml:"asyncapi"`
	Info       Info               `yaml:"info"`
	Channels   map[string]Channel `yaml:"channels"`
	Components Components         `yaml:"components"`
}

// Info contains AsyncAPI info section.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Channel represents a channel in AsyncAPI.
type Channel struct {
	Address  string                 `yaml:"address"`
	Messages map[string]interface{} `yaml:"messages"`
}

// Components contains reusable components.
type Components struct {
	Schemas map[string]map[string]interface{} `yaml:"schemas"`
}

// NewEventValidatorFromBytes creates an event validator from AsyncAPI bytes.
// Every component schema carrying x-event-type is compiled.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec Spec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI document: %w", err)
	}

	v := &EventValidator{schemas: make(map[string]*jsonschema.Schema)}
	for name, schema := range spec.Components.Schemas {
		eventType, _ := schema[eventTypeExtension].(string)
		if eventType == "" {
			continue
		}
		delete(schema, eventTypeExtension)

		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema %s: %w", name, err)
		}
		if err := v.RegisterSchema(eventType, raw); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}

	return v, nil
}

// RegisterSchema compiles a JSON schema for an event type.
func (v *EventValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	uri := fmt.Sprintf("asyncapi://schemas/%s.json", eventType)
	if err := compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	v.schemas[eventType] = compiled
	return nil
}

// ValidateEvent validates a CloudEvent's data against the schema for its type.
func (v *EventValidator) ValidateEvent(event *cloudevents.CloudEvent) error {
	if event == nil || event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	// Round trip through JSON so struct payloads validate the same way consumers see them.
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// SupportedEventTypes returns the event types with a compiled schema, sorted.
func (v *EventValidator) SupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// ValidatingPublisher rejects events that do not match the published contract
// before they reach the broker.
type ValidatingPublisher struct {
	next      kafka.EventPublisher
	validator *EventValidator
}

// NewValidatingPublisher wraps next with contract validation
func NewValidatingPublisher(next kafka.EventPublisher, validator *EventValidator) *ValidatingPublisher {
	return &ValidatingPublisher{next: next, validator: validator}
}

// PublishEvent validates and forwards the event
func (p *ValidatingPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	if err := p.validator.ValidateEvent(event); err != nil {
		return fmt.Errorf("contract violation: %w", err)
	}
	return p.next.PublishEvent(ctx, topic, event)
}
