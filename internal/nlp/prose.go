package nlp

import (
	"fmt"
	"sync"

	"github.com/jdkato/prose/v2"
)

// ProseModel loads the prose English tagger and entity model once and shares
// it across documents. Calls are serialized.
type ProseModel struct {
	once  sync.Once
	mu    sync.Mutex
	model *prose.Model
	err   error
}

var sharedProse = &ProseModel{}

// DefaultProseModel returns the process-wide model.
func DefaultProseModel() *ProseModel {
	return sharedProse
}

func (m *ProseModel) load() error {
	m.once.Do(func() {
		doc, err := prose.NewDocument("", prose.WithSegmentation(false))
		if err != nil {
			m.err = fmt.Errorf("failed to load prose model: %w", err)
			return
		}
		m.model = doc.Model
	})
	return m.err
}

func (m *ProseModel) document(text string, extract bool) (*prose.Document, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := prose.NewDocument(text,
		prose.UsingModel(m.model),
		prose.WithSegmentation(false),
		prose.WithExtraction(extract))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}
	return doc, nil
}

// Tag returns the tokens of text with Penn Treebank part-of-speech tags.
func (m *ProseModel) Tag(text string) ([]prose.Token, error) {
	doc, err := m.document(text, false)
	if err != nil {
		return nil, err
	}
	return doc.Tokens(), nil
}

// Entities returns the PERSON and GPE spans prose finds in text.
func (m *ProseModel) Entities(text string) ([]prose.Entity, error) {
	doc, err := m.document(text, true)
	if err != nil {
		return nil, err
	}
	return doc.Entities(), nil
}
