package fingerprint

import (
	"net/netip"
	"strings"
	"sync"

	"github.com/mssola/useragent"

	"veritas/internal/platform/config"
)

// botSignatures are substrings that identify automation tooling in a client
// identity string. Matching is case-insensitive.
var botSignatures = []string{
	"headless", "selenium", "puppeteer", "python-requests",
	"scrapy", "bot", "crawler", "spider", "phantomjs",
	"playwright", "httpx", "urllib", "wget", "curl",
	"go-http-client", "java/", "httpie", "postman",
}

// Extractor normalizes request signals into a Fingerprint. It is safe for
// concurrent use; the origin resolver is rebuilt lazily when the tunables
// snapshot changes.
type Extractor struct {
	tunables *config.Store

	mu       sync.Mutex
	builtFor *config.Tunables
	resolver *originResolver
}

// New constructs an extractor reading datacenter ranges from the tunables.
func New(tunables *config.Store) *Extractor {
	return &Extractor{tunables: tunables}
}

// Extract derives a Fingerprint from raw request signals.
func (e *Extractor) Extract(s Signals) Fingerprint {
	ua := useragent.New(s.ClientIdentity)
	browser, _ := ua.Browser()

	identity := strings.ToLower(strings.TrimSpace(s.ClientIdentity))

	return Fingerprint{
		FillDuration:    s.FillDuration,
		ClientIdentity:  s.ClientIdentity,
		Browser:         browser,
		OS:              ua.OS(),
		AutomationFlag:  s.WebDriver,
		BotSignature:    ua.Bot() || matchesBotSignature(identity),
		GenericIdentity: isGenericIdentity(identity),
		Origin:          e.origin(s.ClientIP),
	}
}

func matchesBotSignature(identity string) bool {
	for _, sig := range botSignatures {
		if strings.Contains(identity, sig) {
			return true
		}
	}
	return false
}

// isGenericIdentity flags empty and library-default identity strings that
// real browsers never send on their own.
func isGenericIdentity(identity string) bool {
	return identity == "" || identity == "mozilla/5.0"
}

func (e *Extractor) origin(ip string) NetworkOrigin {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return OriginUnknown
	}
	if e.currentResolver().isDatacenter(addr) {
		return OriginDatacenter
	}
	return OriginResidential
}

// currentResolver returns the CIDR resolver for the live tunables snapshot,
// rebuilding it only when the snapshot pointer has changed.
func (e *Extractor) currentResolver() *originResolver {
	snapshot := e.tunables.Load()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.builtFor != snapshot {
		e.resolver = newOriginResolver(snapshot.DatacenterCIDRs)
		e.builtFor = snapshot
	}
	return e.resolver
}

// originResolver answers datacenter membership for parsed addresses.
// Invalid CIDR entries are dropped at build time.
type originResolver struct {
	prefixes []netip.Prefix
}

func newOriginResolver(cidrs []string) *originResolver {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			continue
		}
		prefixes = append(prefixes, p)
	}
	return &originResolver{prefixes: prefixes}
}

func (r *originResolver) isDatacenter(addr netip.Addr) bool {
	for _, p := range r.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
