package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"suumo-traveltime/models"
)

// listingBaseURL points at the public listings search, pre-filtered to the
// wards and floor plans of interest. Override with LISTINGS_URL.
const listingBaseURL = "https://suumo.jp/jj/chintai/ichiran/FR301FC001/?url=%2Fchintai%2Fichiran%2FFR301FC001%2F&ar=030&bs=040&pc=50&smk=&po1=25&po2=99&tc=0400501&tc=0400902&shkr1=03&shkr2=03&shkr3=03&shkr4=03&cb=0.0&ct=13.0&md=03&md=04&md=05&md=06&md=07&md=08&md=09&md=10&md=11&md=12&md=13&md=14&et=9999999&mb=25&mt=9999999&cn=9999999&ta=13&sc=13103&sc=13104&sc=13113&sc=13110&sc=13112"

const listingURLPrefix = "https://suumo.jp"

// ErrParse means the listings page did not have the expected structure,
// usually because the site changed its markup.
var ErrParse = errors.New("unexpected listings page structure")

// Geocoder resolves building addresses to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (models.Coordinate, error)
}

// ScrapeService fetches the paginated listings site and turns it into
// buildings with geocoded addresses and their apartment listings.
type ScrapeService struct {
	geocoder  Geocoder
	client    *http.Client
	baseURL   string
	pageLimit int
}

// NewScrapeService creates a ScrapeService. baseURL may be empty to use the
// default listings search; pageLimit caps how many result pages are fetched
// (0 means all).
func NewScrapeService(geocoder Geocoder, baseURL string, timeout time.Duration, pageLimit int) *ScrapeService {
	if baseURL == "" {
		baseURL = listingBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ScrapeService{
		geocoder:  geocoder,
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		pageLimit: pageLimit,
	}
}

// Scrape walks the paginated listings and returns one Building per listed
// building, each with geocoded coordinates and its apartments.
func (s *ScrapeService) Scrape(ctx context.Context) ([]*models.Building, error) {
	doc, err := s.fetchPage(ctx, 1)
	if err != nil {
		return nil, err
	}

	total, err := parseTotalHits(doc)
	if err != nil {
		return nil, err
	}
	pages, err := parsePageCount(doc)
	if err != nil {
		return nil, err
	}
	if s.pageLimit > 0 && pages > s.pageLimit {
		pages = s.pageLimit
	}
	log.Printf("Scraping %d listings across %d page(s)", total, pages)

	var buildings []*models.Building
	for page := 1; page <= pages; page++ {
		if page > 1 {
			doc, err = s.fetchPage(ctx, page)
			if err != nil {
				return buildings, err
			}
		}

		pageBuildings, err := s.parseBuildings(ctx, doc)
		if err != nil {
			return buildings, err
		}
		buildings = append(buildings, pageBuildings...)
		log.Printf("Page %d/%d: %d buildings so far", page, pages, len(buildings))
	}

	return buildings, nil
}

func (s *ScrapeService) fetchPage(ctx context.Context, page int) (*html.Node, error) {
	pageURL, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listings URL: %w", err)
	}
	if page > 1 {
		q := pageURL.Query()
		q.Set("page", strconv.Itoa(page))
		pageURL.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching listings page %d: %w", page, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listings page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching listings page %d: unexpected status %s", page, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listings page %d: %w", page, err)
	}
	return doc, nil
}

func (s *ScrapeService) parseBuildings(ctx context.Context, doc *html.Node) ([]*models.Building, error) {
	var buildings []*models.Building

	for _, cassette := range findAll(doc, byClass("div", "cassetteitem")) {
		name, err := requireText(cassette, byClass("div", "cassetteitem_content-title"), "building name")
		if err != nil {
			return nil, err
		}
		address, err := requireText(cassette, byClass("li", "cassetteitem_detail-col1"), "building address")
		if err != nil {
			return nil, err
		}

		coord, err := s.geocoder.Resolve(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("geocoding building %q: %w", name, err)
		}

		var apartments []models.Apartment
		for _, row := range findAll(cassette, byClass("tr", "js-cassette_link")) {
			apartment, err := parseApartment(row, name)
			if err != nil {
				return nil, err
			}
			apartments = append(apartments, apartment)
		}

		buildings = append(buildings, &models.Building{
			Name:         name,
			Address:      address,
			Coordinate:   coord,
			Reachability: make(map[string]models.Reachability),
			Apartments:   apartments,
		})
	}

	return buildings, nil
}

func parseApartment(row *html.Node, buildingName string) (models.Apartment, error) {
	var apartment models.Apartment
	var err error

	if apartment.Rent, err = requireText(row, byClass("span", "cassetteitem_price--rent"), buildingName+": rent"); err != nil {
		return apartment, err
	}
	if apartment.Fees, err = requireMoney(row, "cassetteitem_price--administration", buildingName+": fees"); err != nil {
		return apartment, err
	}
	if apartment.Deposit, err = requireMoney(row, "cassetteitem_price--deposit", buildingName+": deposit"); err != nil {
		return apartment, err
	}
	if apartment.KeyMoney, err = requireMoney(row, "cassetteitem_price--gratuity", buildingName+": key money"); err != nil {
		return apartment, err
	}
	if apartment.Kind, err = requireText(row, byClass("span", "cassetteitem_madori"), buildingName+": kind"); err != nil {
		return apartment, err
	}
	if apartment.Area, err = requireText(row, byClass("span", "cassetteitem_menseki"), buildingName+": area"); err != nil {
		return apartment, err
	}

	// The plan thumbnail carries its full-size image in rel; the class name's
	// triple-s typo is the site's, not ours.
	if apartment.PlanImageURL, err = requireAttr(row, byClass("img", "casssetteitem_other-thumbnail-img"), "rel", buildingName+": plan"); err != nil {
		return apartment, err
	}

	href, err := requireAttr(row, byClass("a", "cassetteitem_other-linktext"), "href", buildingName+": listing URL")
	if err != nil {
		return apartment, err
	}
	apartment.URL = listingURLPrefix + href

	rawID, err := requireAttr(row, byID("bukken_0"), "value", buildingName+": listing id")
	if err != nil {
		return apartment, err
	}
	apartment.ListingID, err = strconv.ParseUint(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return apartment, fmt.Errorf("%w: %s: listing id %q", ErrParse, buildingName, rawID)
	}

	return apartment, nil
}

func parseTotalHits(doc *html.Node) (int, error) {
	raw, err := requireText(doc, byClass("div", "paginate_set-hit"), "total hit count")
	if err != nil {
		return 0, err
	}
	// The counter reads like "1,234件"; keep the leading number only.
	raw = strings.ReplaceAll(raw, ",", "")
	digits := raw
	for i, r := range raw {
		if r < '0' || r > '9' {
			digits = raw[:i]
			break
		}
	}
	total, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: total hit count %q", ErrParse, raw)
	}
	return total, nil
}

func parsePageCount(doc *html.Node) (int, error) {
	pagination := findFirst(doc, byClass("ol", "pagination-parts"))
	if pagination == nil {
		return 0, fmt.Errorf("%w: pagination not found", ErrParse)
	}

	var last *html.Node
	for child := pagination.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			last = child
		}
	}
	if last == nil {
		return 0, fmt.Errorf("%w: last page link not found", ErrParse)
	}

	raw := strings.TrimSpace(textContent(last))
	pages, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: page count %q", ErrParse, raw)
	}
	return pages, nil
}

// requireMoney extracts a money field, mapping the site's "-" placeholder to
// an empty string.
func requireMoney(scope *html.Node, class, what string) (string, error) {
	value, err := requireText(scope, byClass("span", class), what)
	if err != nil {
		return "", err
	}
	if value == "-" {
		return "", nil
	}
	return value, nil
}

func requireText(scope *html.Node, match func(*html.Node) bool, what string) (string, error) {
	node := findFirst(scope, match)
	if node == nil {
		return "", fmt.Errorf("%w: %s not found", ErrParse, what)
	}
	return strings.TrimSpace(textContent(node)), nil
}

func requireAttr(scope *html.Node, match func(*html.Node) bool, key, what string) (string, error) {
	node := findFirst(scope, match)
	if node == nil {
		return "", fmt.Errorf("%w: %s not found", ErrParse, what)
	}
	value := attr(node, key)
	if value == "" {
		return "", fmt.Errorf("%w: %s missing %s attribute", ErrParse, what, key)
	}
	return value, nil
}

// byClass matches elements with the given tag (empty for any) carrying the
// given class.
func byClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || (tag != "" && n.Data != tag) {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var nodes []*html.Node
	if match(n) {
		nodes = append(nodes, n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		nodes = append(nodes, findAll(child, match)...)
	}
	return nodes
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}
