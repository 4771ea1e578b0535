package contacts

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// contactPageKeywords select which internal links are worth a follow-up
// fetch when hunting for contact details.
var contactPageKeywords = []string{
	"contact", "about", "team", "staff", "leadership",
	"giving", "donate", "philanthropy", "csr", "foundation",
	"responsibility", "grant", "community",
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	cardClassRe  = regexp.MustCompile(`(?i)team|staff|person|member|bio|card`)
	personTypeRe = regexp.MustCompile(`(?i)Person`)
	titleClassRe = regexp.MustCompile(`(?i)title|role|position|job`)
)

// assetSuffixes are file extensions that make the text pattern match
// filenames instead of addresses.
var assetSuffixes = []string{".png", ".jpg", ".gif", ".svg", ".css", ".js"}

// staffEntry is a name/title pair lifted from a team or staff page.
type staffEntry struct {
	Name  string
	Title string
}

// pageScan accumulates everything harvested across an organization's pages.
type pageScan struct {
	emails    []string
	emailSeen map[string]bool
	phone     string
	staff     []staffEntry
}

func newPageScan() *pageScan {
	return &pageScan{emailSeen: make(map[string]bool)}
}

// scan harvests one parsed page into the accumulator.
func (ps *pageScan) scan(doc *goquery.Document, maxStaff int) {
	for _, email := range collectEmails(doc) {
		if ps.emailSeen[email] {
			continue
		}
		ps.emailSeen[email] = true
		ps.emails = append(ps.emails, email)
	}
	if ps.phone == "" {
		ps.phone = firstPhone(doc)
	}
	ps.staff = append(ps.staff, findStaff(doc, maxStaff)...)
}

// collectEmails gathers mailto targets and plain-text addresses, dropping
// asset filenames the text pattern also matches.
func collectEmails(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			return
		}
		for _, suffix := range assetSuffixes {
			if strings.HasSuffix(email, suffix) {
				return
			}
		}
		seen[email] = true
		out = append(out, email)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "mailto:") {
			return
		}
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.Index(addr, "?"); i >= 0 {
			addr = addr[:i]
		}
		add(addr)
	})

	for _, match := range emailRe.FindAllString(doc.Text(), -1) {
		add(match)
	}
	return out
}

// firstPhone returns the first US-looking phone number in the page text.
func firstPhone(doc *goquery.Document) string {
	return strings.TrimSpace(phoneRe.FindString(doc.Text()))
}

// findStaff pulls name/title pairs with two heuristics: structured team
// cards (containers whose class or itemtype hints at people), and plain
// h3/h4 headings followed by a short title line. Only titles that score on
// the role ladder are kept, best first, capped at maxStaff per page.
func findStaff(doc *goquery.Document, maxStaff int) []staffEntry {
	var entries []staffEntry

	doc.Find("div, article, li, section").Each(func(_ int, card *goquery.Selection) {
		class, _ := card.Attr("class")
		itemtype, _ := card.Attr("itemtype")
		if !cardClassRe.MatchString(class) && !personTypeRe.MatchString(itemtype) {
			return
		}

		nameSel := card.Find("h2, h3, h4, strong, b").First()
		if nameSel.Length() == 0 {
			return
		}

		titleSel := card.Find("p, span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			c, _ := s.Attr("class")
			return titleClassRe.MatchString(c)
		}).First()
		if titleSel.Length() == 0 {
			texts := card.Find("p, span")
			if texts.Length() >= 2 {
				titleSel = texts.Eq(1)
			}
		}

		name := strings.TrimSpace(nameSel.Text())
		title := strings.TrimSpace(titleSel.Text())
		if name != "" && utf8.RuneCountInString(name) < 80 && TitleScore(title) > 0 {
			entries = append(entries, staffEntry{Name: name, Title: title})
		}
	})

	doc.Find("h3, h4").Each(func(_ int, heading *goquery.Selection) {
		sibling := heading.NextAllFiltered("p, span").First()
		if sibling.Length() == 0 {
			return
		}
		name := strings.TrimSpace(heading.Text())
		title := strings.TrimSpace(sibling.Text())
		if name != "" && utf8.RuneCountInString(name) < 80 && TitleScore(title) > 0 {
			entries = append(entries, staffEntry{Name: name, Title: title})
		}
	})

	sort.SliceStable(entries, func(i, j int) bool {
		return TitleScore(entries[i].Title) > TitleScore(entries[j].Title)
	})
	if maxStaff > 0 && len(entries) > maxStaff {
		entries = entries[:maxStaff]
	}
	return entries
}

// findSubpages returns same-host links whose href or text mentions a
// contact-page keyword, in document order without repeats.
func findSubpages(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		lowerHref := strings.ToLower(href)
		text := strings.ToLower(a.Text())

		matched := false
		for _, kw := range contactPageKeywords {
			if strings.Contains(lowerHref, kw) || strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if full.Host != base.Host {
			return
		}
		link := full.String()
		if seen[link] || link == baseURL {
			return
		}
		seen[link] = true
		out = append(out, link)
	})
	return out
}

// matchEmailToPerson finds an email whose local part contains the person's
// first or last name, falling back to the best generic address.
func matchEmailToPerson(name string, emails []string) string {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) == 0 {
		return pickBestEmail(emails)
	}
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}

	for _, email := range emails {
		local := strings.SplitN(email, "@", 2)[0]
		if strings.Contains(local, first) || (last != "" && strings.Contains(local, last)) {
			return email
		}
	}
	return pickBestEmail(emails)
}

var (
	priorityEmailKeywords = []string{
		"giving", "donate", "csr", "philanthropy", "grants",
		"foundation", "development", "partner",
	}
	secondaryEmailKeywords = []string{"contact", "hello", "info", "connect", "outreach"}
	avoidEmailKeywords     = []string{
		"noreply", "no-reply", "support", "help", "sales", "hr",
		"jobs", "careers", "press", "media", "legal",
	}
)

// pickBestEmail prefers fundraising-adjacent addresses, then friendly
// generic ones, then anything that is not an operational mailbox.
func pickBestEmail(emails []string) string {
	if len(emails) == 0 {
		return ""
	}
	for _, kw := range priorityEmailKeywords {
		for _, email := range emails {
			if strings.Contains(email, kw) {
				return email
			}
		}
	}
	for _, kw := range secondaryEmailKeywords {
		for _, email := range emails {
			if strings.Contains(email, kw) {
				return email
			}
		}
	}
	for _, email := range emails {
		avoided := false
		for _, kw := range avoidEmailKeywords {
			if strings.Contains(email, kw) {
				avoided = true
				break
			}
		}
		if !avoided {
			return email
		}
	}
	return emails[0]
}
