package product

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"awsmp-go-scraper/internal/models"
)

const titlePrefix = "aws marketplace:"

var whitespaceRe = regexp.MustCompile(`\s+`)

// Fields are the identity and attribution signals of one product page. Any of
// them may be absent; a page missing a seller link still yields the rest.
type Fields struct {
	Name            *string
	Seller          *string
	CategoryPrimary *string
	CategoriesAll   *string
	DeliveryMethod  *string
}

// Parse builds a document from raw page bytes, decoding to UTF-8 when needed
// and stripping script/style noise before any text work.
func Parse(data []byte, contentType string) (*goquery.Document, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, err
		}
		utf8data = data
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, err
	}
	doc.Find("script,noscript,style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	return doc, nil
}

// NormalizedText is the whitespace-collapsed text content of the whole page,
// the input to the pricing and delivery classifiers.
func NormalizedText(doc *goquery.Document) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(doc.Text(), " "))
}

// Extract derives the product fields from a parsed page.
func Extract(doc *goquery.Document) Fields {
	f := Fields{
		Name:   extractName(doc),
		Seller: firstAnchorText(doc, `a[href*="/marketplace/seller-profile"]`),
	}
	cats := anchorTexts(doc, `a[href*="/marketplace/b/"]`)
	if len(cats) > 0 {
		f.CategoryPrimary = models.StrPtr(cats[0])
		f.CategoriesAll = models.StrPtr(strings.Join(cats, "|"))
	}
	f.DeliveryMethod = DetectDelivery(NormalizedText(doc))
	return f
}

func extractName(doc *goquery.Document) *string {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return nil
	}
	t := strings.TrimSpace(sel.Text())
	if t == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(t), titlePrefix) {
		parts := strings.SplitN(t, ":", 2)
		t = strings.TrimSpace(parts[1])
	}
	return models.StrPtr(t)
}

func firstAnchorText(doc *goquery.Document, selector string) *string {
	texts := anchorTexts(doc, selector)
	if len(texts) == 0 {
		return nil
	}
	return models.StrPtr(texts[0])
}

func anchorTexts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// deliveryRules is an ordered priority list, not independent checks: the
// first matching phrase set wins.
type deliveryRule struct {
	method string
	match  func(t string) bool
}

var deliveryRules = []deliveryRule{
	{"SaaS", func(t string) bool {
		return strings.Contains(t, "software as a service") || strings.Contains(t, "(saas)")
	}},
	{"AMI", func(t string) bool {
		return strings.Contains(t, "amazon machine image") || strings.Contains(t, "(ami)")
	}},
	{"Container", func(t string) bool {
		return strings.Contains(t, "container") &&
			(strings.Contains(t, "kubernetes") || strings.Contains(t, "ecs") || strings.Contains(t, "ecr"))
	}},
	{"Professional Services", func(t string) bool {
		return strings.Contains(t, "professional services")
	}},
	{"Data", func(t string) bool {
		return strings.Contains(t, "data product") || strings.Contains(t, "data exchange") ||
			strings.Contains(t, "data sets")
	}},
}

// DetectDelivery matches the normalized page text against the delivery marker
// phrases. Nil when nothing matches.
func DetectDelivery(text string) *string {
	t := strings.ToLower(text)
	for _, rule := range deliveryRules {
		if rule.match(t) {
			return models.StrPtr(rule.method)
		}
	}
	return nil
}
