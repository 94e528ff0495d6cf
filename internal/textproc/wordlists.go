package textproc

// stopwords is a compact English function-word list. The tagger marks
// most of these as determiners or pronouns already; the list catches the
// ones that leak through as nouns or adjectives.
var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am",
		"an", "and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot", "could",
		"did", "do", "does", "doing", "down", "during", "each", "few", "for",
		"from", "further", "had", "has", "have", "having", "he", "her", "here",
		"hers", "herself", "him", "himself", "his", "how", "i", "if", "in", "into",
		"is", "it", "its", "itself", "just", "me", "more", "most", "my", "myself",
		"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
		"other", "ought", "our", "ours", "ourselves", "out", "over", "own",
		"same", "she", "should", "so", "some", "such", "than", "that", "the",
		"their", "theirs", "them", "themselves", "then", "there", "these", "they",
		"thing", "things", "this", "those", "through", "to", "too", "under",
		"until", "up", "very", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "whom", "why", "will", "with", "would", "you",
		"your", "yours", "yourself", "yourselves",
	} {
		stopwords[w] = true
	}

	for _, w := range []string{
		"column", "table", "row", "section", "subsection", "clause",
		"html", "div", "span", "class", "style", "id", "href", "src",
		"paragraph", "subparagraph", "chapter", "article", "schedule",
		"annex", "appendix", "footer", "header", "nav", "menu", "button",
		"form", "input", "label", "select", "option", "textarea", "fieldset",
		"legend", "iframe", "frame", "script", "noscript", "canvas", "svg",
		"meta", "link", "embed", "object",
	} {
		structuralArtifacts[w] = true
	}

	for _, w := range []string{
		"act", "bill", "law", "legislation", "regulation", "statute",
		"amendment", "provision", "rule", "code", "ordinance", "bylaw",
		"by-law", "policy", "directive", "part", "division",
	} {
		genericLegislative[w] = true
	}
}

// structuralArtifacts covers markup and document-structure tokens that
// survive scraping and POS tagging but carry no topical signal.
var structuralArtifacts = map[string]bool{}

// genericLegislative covers boilerplate terms that appear in nearly every
// piece of legislation and would dominate every document's keyword set.
var genericLegislative = map[string]bool{}
