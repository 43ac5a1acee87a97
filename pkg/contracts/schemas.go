package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"

	"marketplace/pkg/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownCategory - для категории нет схемы атрибутов.
var ErrUnknownCategory = errors.New("unknown listing category")

var (
	compiledEvents   = make(map[string]*jsonschema.Schema)
	compiledListings = make(map[string]*jsonschema.Schema)
)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	// Все схемы добавляются как ресурсы до компиляции, чтобы работали $ref.
	for _, root := range []string{"events", "listings"} {
		err := walkJSON(root, func(p string) error {
			file, err := schemas.SchemasFS.Open(p)
			if err != nil {
				return err
			}
			defer file.Close()
			return compiler.AddResource(p, file)
		})
		if err != nil {
			log.Fatalf("failed to add schema resources from %s: %v", root, err)
		}
	}

	err := walkJSON("events", func(p string) error {
		schema, err := compiler.Compile(p)
		if err != nil {
			return fmt.Errorf("compile %s: %w", p, err)
		}
		if key := generateKeyFromPath(p); key != "" {
			compiledEvents[key] = schema
		}
		return nil
	})
	if err != nil {
		log.Fatalf("error compiling event schemas: %v", err)
	}

	err = walkJSON("listings", func(p string) error {
		schema, err := compiler.Compile(p)
		if err != nil {
			return fmt.Errorf("compile %s: %w", p, err)
		}
		compiledListings[strings.TrimSuffix(path.Base(p), ".json")] = schema
		return nil
	})
	if err != nil {
		log.Fatalf("error compiling listing schemas: %v", err)
	}
}

func walkJSON(root string, fn func(p string) error) error {
	return fs.WalkDir(schemas.SchemasFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		return fn(p)
	})
}

// generateKeyFromPath преобразует "events/listing-published/v1.json"
// в "ListingPublishedEvent/1.0.0".
func generateKeyFromPath(p string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(p, "events/"), ".json")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, word := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(word))
	}
	name.WriteString("Event")

	version := strings.Replace(parts[1], "v", "", 1) + ".0.0"
	return fmt.Sprintf("%s/%s", name.String(), version)
}

// ValidateEvent проверяет тело сообщения по схеме события.
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	key := fmt.Sprintf("%s/%s", eventType, eventVersion)
	schema, ok := compiledEvents[key]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, eventVersion)
	}

	v, err := decode(body)
	if err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ListingCategories возвращает категории, для которых есть схема атрибутов.
func ListingCategories() []string {
	out := make([]string, 0, len(compiledListings))
	for name := range compiledListings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateListingAttributes проверяет атрибуты объявления по схеме категории.
// partial = true используется для черновиков: отсутствующие обязательные поля
// допустимы, но типы и значения присутствующих полей проверяются.
func ValidateListingAttributes(category string, attrs map[string]interface{}, partial bool) error {
	schema, ok := compiledListings[category]
	if !ok {
		return ErrUnknownCategory
	}
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("attributes are not serializable: %w", err)
	}
	v, err := decode(raw)
	if err != nil {
		return err
	}

	err = schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	var problems []string
	for _, leaf := range leaves(ve) {
		if partial && strings.HasSuffix(leaf.KeywordLocation, "/required") {
			continue
		}
		problems = append(problems, formatLeaf(leaf))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// decode использует UseNumber, чтобы целые значения проходили проверку "integer".
func decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

func formatLeaf(ve *jsonschema.ValidationError) string {
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return ve.Message
	}
	return field + ": " + ve.Message
}
