package exam

import "strings"

// Delimiters are OCR renderings of circled numbers, enumeration glyphs and
// bullet marks that introduce an answer choice.
const Delimiters = "①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮⑯⑰⑱⑲⑳" +
	"❶❷❸❹❺❻❼❽❾❿" +
	"➀➁➂➃➄➅➆➇➈➉" +
	"⑴⑵⑶⑷⑸⑹⑺⑻⑼⑽" +
	"•●○◯▪■□◦‣∙"

func isDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}

// indexDelimiter returns the byte offset of the first delimiter in s, or -1.
func indexDelimiter(s string) int {
	return strings.IndexFunc(s, isDelimiter)
}
