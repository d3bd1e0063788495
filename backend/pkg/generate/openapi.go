package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/oasdiff/yaml"

	"envsensor/backend/pkg/utils"
)

const (
	OpenAPIVersion  = "3.0.3"
	contentTypeJSON = "application/json"
	componentPrefix = "#/components/schemas/"
)

type OpenAPICollectorOptions struct {
	OpenAPISpecOutputPath        string
	DocsFileOutputPath           string
	DatabaseSchemaFileOutputPath string
	APIInfo                      APIInfo
}

// OpenAPICollector builds an OpenAPI document from registered routes and a
// JSON document describing the MQTT operations.
type OpenAPICollector struct {
	l    *slog.Logger
	opts OpenAPICollectorOptions
	spec *openapi3.T

	operationIDs      map[string]struct{}
	httpOps           map[string]*RouteInfo
	mqttPublications  map[string]*MQTTPublicationInfo
	mqttSubscriptions map[string]*MQTTSubscriptionInfo
}

func NewOpenAPICollector(l *slog.Logger, opts OpenAPICollectorOptions) (*OpenAPICollector, error) {
	if opts.OpenAPISpecOutputPath == "" {
		return nil, errors.New("OpenAPI spec file path is required")
	}

	if opts.APIInfo.Title == "" || opts.APIInfo.Version == "" {
		return nil, errors.New("API title and version are required")
	}

	spec := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       opts.APIInfo.Title,
			Version:     opts.APIInfo.Version,
			Description: opts.APIInfo.Description,
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	for _, server := range opts.APIInfo.Servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: server.URL, Description: server.Description})
	}

	return &OpenAPICollector{
		l:                 l.With(slog.String("component", "openapi-collector")),
		opts:              opts,
		spec:              spec,
		operationIDs:      make(map[string]struct{}),
		httpOps:           make(map[string]*RouteInfo),
		mqttPublications:  make(map[string]*MQTTPublicationInfo),
		mqttSubscriptions: make(map[string]*MQTTSubscriptionInfo),
	}, nil
}

// Spec returns the document built so far.
func (g *OpenAPICollector) Spec() *openapi3.T {
	return g.spec
}

func (g *OpenAPICollector) claimOperationID(id string) error {
	if id == "" {
		return errors.New("operationID is required")
	}

	if _, exists := g.operationIDs[id]; exists {
		return fmt.Errorf("duplicate operationID: %s", id)
	}

	g.operationIDs[id] = struct{}{}

	return nil
}

func (g *OpenAPICollector) RegisterRoute(route *RouteInfo) error {
	if err := g.claimOperationID(route.OperationID); err != nil {
		return err
	}

	op := openapi3.NewOperation()
	op.OperationID = route.OperationID
	op.Summary = route.Summary
	op.Description = route.Description
	op.Tags = []string{route.Group}
	op.Deprecated = route.Deprecated != ""

	for _, p := range route.Parameters {
		param, err := g.buildParameter(p)
		if err != nil {
			return fmt.Errorf("operation %s: %w", route.OperationID, err)
		}

		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	if route.Request != nil && route.Request.TypeValue != nil {
		content, err := g.buildContent(contentTypeJSON, route.Request.TypeValue, route.Request.Examples)
		if err != nil {
			return fmt.Errorf("operation %s request: %w", route.OperationID, err)
		}

		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithContent(content)}
	}

	codes := make([]int, 0, len(route.Responses))
	for code := range route.Responses {
		codes = append(codes, code)
	}

	slices.Sort(codes)

	respOpts := make([]openapi3.NewResponsesOption, 0, len(codes))

	for _, code := range codes {
		spec := route.Responses[code]

		resp := openapi3.NewResponse().WithDescription(spec.Description)

		if spec.TypeValue != nil {
			contentType := spec.ContentType
			if contentType == "" {
				contentType = contentTypeJSON
			}

			content, err := g.buildContent(contentType, spec.TypeValue, spec.Examples)
			if err != nil {
				return fmt.Errorf("operation %s response %d: %w", route.OperationID, code, err)
			}

			resp = resp.WithContent(content)
		}

		respOpts = append(respOpts, openapi3.WithStatus(code, &openapi3.ResponseRef{Value: resp}))
	}

	if len(respOpts) == 0 {
		return fmt.Errorf("operation %s has no responses", route.OperationID)
	}

	op.Responses = openapi3.NewResponses(respOpts...)

	item := g.spec.Paths.Value(route.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		g.spec.Paths.Set(route.Path, item)
	}

	if item.GetOperation(route.Method) != nil {
		return fmt.Errorf("duplicate route %s %s", route.Method, route.Path)
	}

	item.SetOperation(route.Method, op)
	g.httpOps[route.OperationID] = route

	g.l.Debug("Registered route", slog.String("operationID", route.OperationID), slog.String("method", route.Method), slog.String("path", route.Path))

	return nil
}

func (g *OpenAPICollector) RegisterMQTTPublication(pub *MQTTPublicationInfo) error {
	if err := g.claimOperationID(pub.OperationID); err != nil {
		return err
	}

	if _, err := g.schemaRef(pub.TypeValue); err != nil {
		return fmt.Errorf("publication %s: %w", pub.OperationID, err)
	}

	g.mqttPublications[pub.OperationID] = pub

	return nil
}

func (g *OpenAPICollector) RegisterMQTTSubscription(sub *MQTTSubscriptionInfo) error {
	if err := g.claimOperationID(sub.OperationID); err != nil {
		return err
	}

	if _, err := g.schemaRef(sub.TypeValue); err != nil {
		return fmt.Errorf("subscription %s: %w", sub.OperationID, err)
	}

	g.mqttSubscriptions[sub.OperationID] = sub

	return nil
}

// Generate writes the OpenAPI YAML, the docs JSON and the database schema.
func (g *OpenAPICollector) Generate() error {
	yamlData, err := yaml.Marshal(g.spec)
	if err != nil {
		return fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	if err := writeOutput(g.opts.OpenAPISpecOutputPath, yamlData); err != nil {
		return fmt.Errorf("failed to write OpenAPI spec: %w", err)
	}

	g.l.Info("OpenAPI spec written", slog.String("file", g.opts.OpenAPISpecOutputPath), slog.Int("operations", len(g.httpOps)))

	var dbSchema string

	if g.opts.DatabaseSchemaFileOutputPath != "" {
		dbSchema, err = DumpDatabaseSchema(g.l, g.opts.DatabaseSchemaFileOutputPath)
		if err != nil {
			return err
		}
	}

	if g.opts.DocsFileOutputPath == "" {
		return nil
	}

	docs, err := utils.ToJSONIndent(g.documentation(dbSchema))
	if err != nil {
		return fmt.Errorf("failed to encode docs: %w", err)
	}

	if err := writeOutput(g.opts.DocsFileOutputPath, append(docs, '\n')); err != nil {
		return fmt.Errorf("failed to write docs: %w", err)
	}

	g.l.Info("API documentation written", slog.String("file", g.opts.DocsFileOutputPath))

	return nil
}

type mqttOperationDoc struct {
	Kind       string                         `json:"kind"`
	Operation  any                            `json:"operation"`
	Message    *openapi3.SchemaRef            `json:"message"`
	Parameters map[string]*openapi3.SchemaRef `json:"parameters,omitempty"`
}

type apiDocumentation struct {
	Info           APIInfo            `json:"info"`
	HTTPOperations []*RouteInfo       `json:"httpOperations"`
	MQTTOperations []mqttOperationDoc `json:"mqttOperations"`
	Schemas        openapi3.Schemas   `json:"schemas"`
	DatabaseSchema string             `json:"databaseSchema,omitempty"`
}

func (g *OpenAPICollector) documentation(dbSchema string) apiDocumentation {
	doc := apiDocumentation{
		Info:           g.opts.APIInfo,
		HTTPOperations: make([]*RouteInfo, 0, len(g.httpOps)),
		MQTTOperations: []mqttOperationDoc{},
		Schemas:        g.spec.Components.Schemas,
		DatabaseSchema: dbSchema,
	}

	for _, id := range sortedKeys(g.httpOps) {
		doc.HTTPOperations = append(doc.HTTPOperations, g.httpOps[id])
	}

	for _, id := range sortedKeys(g.mqttPublications) {
		pub := g.mqttPublications[id]
		doc.MQTTOperations = append(doc.MQTTOperations, g.mqttDoc("publish", pub, pub.TypeValue, pub.TopicParameters))
	}

	for _, id := range sortedKeys(g.mqttSubscriptions) {
		sub := g.mqttSubscriptions[id]
		doc.MQTTOperations = append(doc.MQTTOperations, g.mqttDoc("subscribe", sub, sub.TypeValue, sub.TopicParameters))
	}

	return doc
}

func (g *OpenAPICollector) mqttDoc(kind string, op, message any, params []MQTTTopicParameter) mqttOperationDoc {
	d := mqttOperationDoc{Kind: kind, Operation: op}

	// Registration already validated the message type.
	d.Message, _ = g.schemaRef(message)

	for _, p := range params {
		if ref, err := openapi3gen.NewSchemaRefForValue(p.TypeValue, nil); err == nil {
			if d.Parameters == nil {
				d.Parameters = make(map[string]*openapi3.SchemaRef)
			}

			d.Parameters[p.Name] = ref
		}
	}

	return d
}

func (g *OpenAPICollector) buildParameter(p ParameterInfo) (*openapi3.Parameter, error) {
	var param *openapi3.Parameter

	switch p.In {
	case "path":
		param = openapi3.NewPathParameter(p.Name)
	case "query":
		param = openapi3.NewQueryParameter(p.Name).WithRequired(p.Required)
	case "header":
		param = openapi3.NewHeaderParameter(p.Name).WithRequired(p.Required)
	default:
		return nil, fmt.Errorf("unsupported parameter location %q for %s", p.In, p.Name)
	}

	ref, err := openapi3gen.NewSchemaRefForValue(p.TypeValue, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema for parameter %s: %w", p.Name, err)
	}

	return param.WithDescription(p.Description).WithSchema(ref.Value), nil
}

func (g *OpenAPICollector) buildContent(contentType string, value any, examples map[string]any) (openapi3.Content, error) {
	ref, err := g.schemaRef(value)
	if err != nil {
		return nil, err
	}

	mt := openapi3.NewMediaType().WithSchemaRef(ref)
	for _, name := range sortedKeys(examples) {
		mt = mt.WithExample(name, examples[name])
	}

	return openapi3.Content{contentType: mt}, nil
}

// schemaRef registers named struct types as components and returns a reference to them.
func (g *OpenAPICollector) schemaRef(value any) (*openapi3.SchemaRef, error) {
	if value == nil {
		return nil, errors.New("type value is required")
	}

	ref, err := openapi3gen.NewSchemaRefForValue(value, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct || t.Name() == "" || t.PkgPath() == "time" {
		return ref, nil
	}

	name := t.Name()
	if existing, ok := g.spec.Components.Schemas[name]; ok && !reflect.DeepEqual(existing.Value, ref.Value) {
		return nil, fmt.Errorf("schema name %s is used by two different types", name)
	}

	g.spec.Components.Schemas[name] = ref

	return openapi3.NewSchemaRef(componentPrefix+name, nil), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// writeOutput writes data to path, creating missing parent directories.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
