package metadata

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"box-metadata-workers/internal/common/box"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/metrics"
	"box-metadata-workers/internal/common/observability"
)

const (
	pathTemplate   = "template"
	pathProperties = "properties"
)

// Client is the subset of the Box API the applier needs.
type Client interface {
	GetFile(ctx context.Context, fileID string) (*box.File, error)
	CreateMetadata(ctx context.Context, fileID, scope, templateKey string, payload map[string]interface{}) (map[string]interface{}, error)
	UpdateMetadata(ctx context.Context, fileID, scope, templateKey string, ops []box.PatchOperation) (map[string]interface{}, error)
	GetTemplateSchema(ctx context.Context, scope, templateKey string) (*box.TemplateSchema, error)
}

type Applier struct {
	client  Client
	logger  logger.Logger
	obs     *observability.Observability
	timeout time.Duration
}

type ApplierOptions struct {
	Logger        logger.Logger
	Observability *observability.Observability
	// Timeout bounds one Apply call, including the file lookup. Zero means
	// no limit beyond the caller's context.
	Timeout time.Duration
}

func NewApplier(client Client, opts ApplierOptions) *Applier {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Applier{
		client:  client,
		logger:  opts.Logger,
		obs:     opts.Observability,
		timeout: opts.Timeout,
	}
}

// Apply writes payload to the file's metadata, against tmpl when given and
// as global/properties otherwise. An existing instance is updated with one
// replace operation per key. Apply never panics or returns an error: every
// failure is reported in the result.
func (a *Applier) Apply(ctx context.Context, fileID string, payload Payload, tmpl *TemplateInfo) (result ApplicationResult) {
	path := pathProperties
	if tmpl != nil {
		path = pathTemplate
	}

	fileName := fmt.Sprintf("File %s", fileID)
	start := time.Now()

	ctx, span := a.obs.StartSpan(ctx, "metadata.apply",
		attribute.String("file.id", fileID),
		attribute.String("metadata.path", path),
	)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Unexpected error applying metadata", map[string]interface{}{
				"fileId": fileID,
				"panic":  fmt.Sprint(r),
			})
			result = a.failure(fileID, fileName, fmt.Sprintf("Unexpected error: %v", r))
		}

		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
			metrics.MetadataApplied.WithLabelValues(path, "failed").Inc()
		}
		metrics.MetadataApplyDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		a.obs.RecordFileProcessed(ctx, path, result.Success)
		span.End()
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if file, err := a.client.GetFile(ctx, fileID); err != nil {
		a.logger.Warn("Could not resolve file name", map[string]interface{}{
			"fileId": fileID,
			"error":  err.Error(),
		})
	} else if file.Name != "" {
		fileName = file.Name
	}

	if tmpl != nil {
		return a.applyTemplate(ctx, fileID, fileName, payload, tmpl)
	}
	return a.applyProperties(ctx, fileID, fileName, payload)
}

func (a *Applier) applyTemplate(ctx context.Context, fileID, fileName string, payload Payload, tmpl *TemplateInfo) ApplicationResult {
	scopeID := tmpl.ScopeID()

	normalized := a.normalize(fileID, payload, a.fieldTypes(ctx, scopeID, tmpl.TemplateKey))

	a.logger.Info("Applying template metadata", map[string]interface{}{
		"fileId":      fileID,
		"fileName":    fileName,
		"scope":       scopeID,
		"templateKey": tmpl.TemplateKey,
		"fields":      len(normalized),
	})

	return a.createOrUpdate(ctx, fileID, fileName, scopeID, tmpl.TemplateKey, normalized, pathTemplate,
		"Error creating template metadata: ", "Error updating template metadata: ")
}

func (a *Applier) applyProperties(ctx context.Context, fileID, fileName string, payload Payload) ApplicationResult {
	normalized := a.normalize(fileID, payload, nil)

	a.logger.Info("Applying properties metadata", map[string]interface{}{
		"fileId":   fileID,
		"fileName": fileName,
		"fields":   len(normalized),
	})

	return a.createOrUpdate(ctx, fileID, fileName, box.GlobalScope, box.PropertiesTemplate, normalized, pathProperties,
		"Error creating metadata: ", "Error updating metadata: ")
}

func (a *Applier) createOrUpdate(ctx context.Context, fileID, fileName, scope, templateKey string, normalized Payload, path, createPrefix, updatePrefix string) ApplicationResult {
	instance, err := a.client.CreateMetadata(ctx, fileID, scope, templateKey, normalized)
	if err == nil {
		metrics.MetadataApplied.WithLabelValues(path, "created").Inc()
		return a.success(fileID, fileName, instance)
	}

	if !box.IsConflict(err) {
		a.logger.Error("Failed to create metadata", map[string]interface{}{
			"fileId": fileID,
			"scope":  scope,
			"error":  err.Error(),
		})
		return a.failure(fileID, fileName, createPrefix+err.Error())
	}

	metrics.MetadataConflicts.WithLabelValues(path).Inc()
	a.logger.Info("Metadata already exists, updating", map[string]interface{}{
		"fileId": fileID,
		"scope":  scope,
	})

	instance, err = a.client.UpdateMetadata(ctx, fileID, scope, templateKey, ReplaceOperations(normalized))
	if err != nil {
		a.logger.Error("Failed to update metadata", map[string]interface{}{
			"fileId": fileID,
			"scope":  scope,
			"error":  err.Error(),
		})
		return a.failure(fileID, fileName, updatePrefix+err.Error())
	}

	metrics.MetadataApplied.WithLabelValues(path, "updated").Inc()
	return a.success(fileID, fileName, instance)
}

// ReplaceOperations builds one JSON-Patch replace per key, in key order.
func ReplaceOperations(payload Payload) []box.PatchOperation {
	ops := make([]box.PatchOperation, 0, len(payload))
	for _, key := range payload.Keys() {
		ops = append(ops, box.PatchOperation{
			Op:    "replace",
			Path:  "/" + key,
			Value: payload[key],
		})
	}
	return ops
}

func (a *Applier) fieldTypes(ctx context.Context, scope, templateKey string) FieldTypeMap {
	schema, err := a.client.GetTemplateSchema(ctx, scope, templateKey)
	if err != nil {
		a.logger.Warn("Could not load template schema, skipping typed coercion", map[string]interface{}{
			"scope":       scope,
			"templateKey": templateKey,
			"error":       err.Error(),
		})
		return nil
	}
	return FieldTypeMap(schema.FieldTypes())
}

func (a *Applier) normalize(fileID string, payload Payload, fieldTypes FieldTypeMap) Payload {
	normalized, conversions := Normalize(payload, fieldTypes)
	for _, c := range conversions {
		metrics.MetadataConversions.WithLabelValues(c.Outcome.String()).Inc()
		fields := map[string]interface{}{
			"fileId": fileID,
			"field":  c.Key,
			"from":   c.From,
			"to":     c.To,
		}
		if c.Warning != "" {
			fields["warning"] = c.Warning
			a.logger.Warn("Field left unchanged", fields)
			continue
		}
		if c.Outcome == Converted {
			a.logger.Debug("Field converted", fields)
		}
	}
	return normalized
}

func (a *Applier) success(fileID, fileName string, instance map[string]interface{}) ApplicationResult {
	return ApplicationResult{
		FileID:   fileID,
		FileName: fileName,
		Success:  true,
		Metadata: Payload(instance),
	}
}

func (a *Applier) failure(fileID, fileName, msg string) ApplicationResult {
	return ApplicationResult{
		FileID:   fileID,
		FileName: fileName,
		Success:  false,
		Error:    msg,
	}
}
