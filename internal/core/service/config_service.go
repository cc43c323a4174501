package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
	"go.uber.org/zap"
)

// KeywordsKey holds the search keywords inside the collector configuration
const KeywordsKey = "KEYWORDS_GEO"

// ConfigService passes the collector's JSON configuration through without
// interpreting it, apart from the keyword list
type ConfigService struct {
	repo repository.CollectorConfigRepository
	log  *zap.SugaredLogger
}

func NewConfigService(repo repository.CollectorConfigRepository, log *zap.SugaredLogger) *ConfigService {
	return &ConfigService{repo: repo, log: log}
}

// Get returns the stored document, or an empty object when none exists yet
func (s *ConfigService) Get(ctx context.Context) (json.RawMessage, error) {
	document, err := s.repo.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return json.RawMessage("{}"), nil
	}
	if err != nil {
		return nil, err
	}
	return document, nil
}

// Replace stores document, which must be a JSON object. Key order and
// non-ASCII text are kept as sent.
func (s *ConfigService) Replace(ctx context.Context, document []byte) error {
	trimmed := bytes.TrimSpace(document)
	if !json.Valid(trimmed) {
		return NewValidationError("config", "body is not valid JSON")
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NewValidationError("config", "body must be a JSON object")
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, trimmed, "", "  "); err != nil {
		return NewValidationError("config", err.Error())
	}
	pretty.WriteByte('\n')

	if err := s.repo.Save(ctx, pretty.Bytes()); err != nil {
		return errors.Wrap(err, "failed to save collector config")
	}
	s.log.Infow("Collector config replaced", "bytes", pretty.Len())
	return nil
}

// Keywords returns the keyword list; empty when the document has none
func (s *ConfigService) Keywords(ctx context.Context) ([]string, error) {
	fields, err := s.fields(ctx)
	if err != nil {
		return nil, err
	}

	keywords := []string{}
	raw, ok := fields[KeywordsKey]
	if !ok {
		return keywords, nil
	}
	if err := json.Unmarshal(raw, &keywords); err != nil {
		return nil, errors.Wrapf(err, "%s is not a list of strings", KeywordsKey)
	}
	return keywords, nil
}

// ReplaceKeywords rewrites the keyword list and leaves every other key alone
func (s *ConfigService) ReplaceKeywords(ctx context.Context, keywords []string) ([]string, error) {
	fields, err := s.fields(ctx)
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			cleaned = append(cleaned, keyword)
		}
	}

	raw, err := marshalNoEscape(cleaned)
	if err != nil {
		return nil, err
	}
	fields[KeywordsKey] = raw

	document, err := marshalNoEscape(fields)
	if err != nil {
		return nil, err
	}
	if err := s.Replace(ctx, document); err != nil {
		return nil, err
	}
	return cleaned, nil
}

func (s *ConfigService) fields(ctx context.Context) (map[string]json.RawMessage, error) {
	document, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(document, &fields); err != nil {
		return nil, errors.Wrap(err, "stored collector config is not a JSON object")
	}
	return fields, nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode collector config")
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
