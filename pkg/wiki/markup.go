package wiki

import (
	"html"
	"regexp"
	"strings"
)

var (
	reComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reRef       = regexp.MustCompile(`(?s)<ref([> ].*?)(</ref>|/>)`)
	reNoWiki    = regexp.MustCompile(`(?s)<nowiki([> ].*?)(</nowiki>|/>)`)
	reMath      = regexp.MustCompile(`(?s)<math([> ].*?)(</math>|/>)`)
	reTag       = regexp.MustCompile(`(?s)<(.*?)>`)
	reLanguages = regexp.MustCompile(`(\n\[\[[a-z][a-z][\w-]*:[^:\]]+\]\])+$`)
	reCategory  = regexp.MustCompile(`\[\[Category:[^\]\[]*\]\]`)
	reFile      = regexp.MustCompile(`\[\[([fF]ile:|[iI]mage:)[^\]]*\]\]`)
	reURL       = regexp.MustCompile(`\[(\w+)://([^ \]]*)( [^\]]*)?\]`)
	reLink      = regexp.MustCompile(`\[([^\]\[]*)\|([^\]\[]*)\]`)
	reTableLine = regexp.MustCompile(`(?m)^(\{\||\|-|\|\}).*$`)
	reTableCell = regexp.MustCompile(`(?m)^[|!]([^|\n\[\]]*\|)*`)
	reCellStyle = regexp.MustCompile(`(?m)^.{0,4}(bgcolor|\d? ?colspan|rowspan|style=|class=|align=|scope=).*$`)
)

// maxPasses bounds the fixed-point loop in StripMarkup.
const maxPasses = 3

// StripMarkup reduces wikitext to plain prose: templates, tags, tables,
// references and link syntax are removed, link labels and image captions
// are kept.
func StripMarkup(text string) string {
	text = html.UnescapeString(html.UnescapeString(text))
	text = reLanguages.ReplaceAllString(text, "")
	text = removeTemplates(text)
	text = removeFiles(text)

	for pass := 0; pass < maxPasses; pass++ {
		old := text
		text = reComment.ReplaceAllString(text, "")
		text = reRef.ReplaceAllString(text, "")
		text = reNoWiki.ReplaceAllString(text, "")
		text = reMath.ReplaceAllString(text, "")
		text = reTag.ReplaceAllString(text, "")
		text = reCategory.ReplaceAllString(text, "")
		text = reURL.ReplaceAllString(text, "$3")
		text = reLink.ReplaceAllString(text, "$2")

		text = strings.ReplaceAll(text, "!!", "\n|")
		text = strings.ReplaceAll(text, "|-||", "\n|")
		text = reTableLine.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "|||", "|\n|")
		text = strings.ReplaceAll(text, "||", "\n|")
		text = reTableCell.ReplaceAllString(text, "")
		text = reCellStyle.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "[]", "")

		if text == old {
			break
		}
	}

	return strings.NewReplacer("[", "", "]", "").Replace(text)
}

// removeTemplates drops every {{...}} span, nested ones included. An
// unterminated template runs to the end of the text.
func removeTemplates(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	depth := 0
	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], "{{"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(text[i:], "}}"):
			depth--
			i++
		case depth == 0:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}

// removeFiles replaces [[File:...]] and [[Image:...]] links with their caption.
func removeFiles(text string) string {
	return reFile.ReplaceAllStringFunc(text, func(m string) string {
		parts := strings.Split(m[:len(m)-2], "|")
		if len(parts) == 1 {
			return ""
		}
		return parts[len(parts)-1]
	})
}
