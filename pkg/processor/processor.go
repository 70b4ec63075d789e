package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xhad/wikivec/internal/models"
	"github.com/xhad/wikivec/internal/types"
	"github.com/xhad/wikivec/pkg/wiki"
)

var _ types.Tokenizer = (*Processor)(nil)

type ProcessorConfig struct {
	TokenMinLen      int
	TokenMaxLen      int
	MinArticleTokens int
	Namespaces       []uint64
	RemoveStopwords  bool
	CustomStopwords  []string
	PreserveCase     bool
}

type Processor struct {
	config     ProcessorConfig
	namespaces map[uint64]bool
	stopwords  map[string]bool
}

// Titles with these prefixes are dropped even when filed under an allowed namespace.
var ignoredNamespaces = []string{
	"Wikipedia", "Category", "File", "Portal", "Template", "MediaWiki",
	"User", "Help", "Book", "Draft", "WikiProject", "Special", "Talk",
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.TokenMinLen == 0 {
		config.TokenMinLen = 2
	}
	if config.TokenMaxLen == 0 {
		config.TokenMaxLen = 15
	}
	if len(config.Namespaces) == 0 {
		config.Namespaces = []uint64{0}
	}

	p := Processor{
		config:     config,
		namespaces: make(map[uint64]bool, len(config.Namespaces)),
	}
	for _, ns := range config.Namespaces {
		p.namespaces[ns] = true
	}
	if config.RemoveStopwords {
		p.stopwords = make(map[string]bool)
		for _, w := range getStopwords() {
			p.stopwords[w] = true
		}
		for _, w := range config.CustomStopwords {
			p.stopwords[w] = true
		}
	}
	return p
}

// Process strips markup from each article and tokenizes it. Articles that
// are filtered out are left out of the result.
func (p *Processor) Process(articles []models.Article) ([]models.ProcessedDocument, error) {
	var processed []models.ProcessedDocument

	for _, article := range articles {
		doc, ok := p.ProcessArticle(article)
		if !ok {
			continue
		}
		processed = append(processed, doc)
	}

	return processed, nil
}

// ProcessArticle reports false for redirects, foreign namespaces and
// articles shorter than MinArticleTokens.
func (p *Processor) ProcessArticle(article models.Article) (models.ProcessedDocument, bool) {
	if !p.Accept(article) {
		return models.ProcessedDocument{}, false
	}

	tokens := p.Tokenize(wiki.StripMarkup(article.Text))
	if len(tokens) < p.config.MinArticleTokens {
		return models.ProcessedDocument{}, false
	}

	return models.ProcessedDocument{Article: article, Tokens: tokens}, true
}

func (p *Processor) Accept(article models.Article) bool {
	if article.Redirect != "" || !p.namespaces[article.Namespace] {
		return false
	}
	for _, prefix := range ignoredNamespaces {
		if strings.HasPrefix(article.Title, prefix+":") {
			return false
		}
	}
	return true
}

// Tokenize splits text into maximal runs of letters, marks and
// underscores; digits and punctuation separate tokens. Tokens outside
// [TokenMinLen, TokenMaxLen] runes or starting with '_' are dropped.
func (p *Processor) Tokenize(text string) []string {
	if !p.config.PreserveCase {
		text = strings.ToLower(text)
	}

	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		token := text[start:end]
		start = -1

		n := utf8.RuneCountInString(token)
		if n < p.config.TokenMinLen || n > p.config.TokenMaxLen || token[0] == '_' {
			return
		}
		if p.stopwords[token] {
			return
		}
		tokens = append(tokens, token)
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))

	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with",
	}
}
