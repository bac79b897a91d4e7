package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/platform/config"
)

type ExtractorSuite struct {
	suite.Suite

	store     *config.Store
	extractor *Extractor
}

func TestExtractorSuite(t *testing.T) {
	suite.Run(t, new(ExtractorSuite))
}

func (s *ExtractorSuite) SetupTest() {
	s.store = config.NewStore(config.Defaults())
	s.extractor = New(s.store)
}

func (s *ExtractorSuite) TestBrowserIdentity() {
	fp := s.extractor.Extract(Signals{
		FillDuration:   8 * time.Second,
		ClientIdentity: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		ClientIP:       "190.21.44.7",
	})

	s.Equal("Chrome", fp.Browser)
	s.False(fp.BotSignature)
	s.False(fp.GenericIdentity)
	s.False(fp.AutomationFlag)
	s.Equal(OriginResidential, fp.Origin)
}

func (s *ExtractorSuite) TestBotSignatures() {
	for _, identity := range []string{
		"python-requests/2.31",
		"curl/8.4.0",
		"Scrapy/2.11 (+https://scrapy.org)",
		"Mozilla/5.0 (compatible; Googlebot/2.1)",
		"HeadlessChrome/119.0",
	} {
		s.Run(identity, func() {
			fp := s.extractor.Extract(Signals{ClientIdentity: identity})
			s.True(fp.BotSignature)
		})
	}
}

func (s *ExtractorSuite) TestGenericIdentity() {
	s.True(s.extractor.Extract(Signals{ClientIdentity: ""}).GenericIdentity)
	s.True(s.extractor.Extract(Signals{ClientIdentity: "Mozilla/5.0"}).GenericIdentity)
	s.False(s.extractor.Extract(Signals{ClientIdentity: "Mozilla/5.0 (X11; Linux x86_64)"}).GenericIdentity)
}

func (s *ExtractorSuite) TestWebDriverSignal() {
	fp := s.extractor.Extract(Signals{
		ClientIdentity: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		WebDriver:      true,
	})
	s.True(fp.AutomationFlag)
}

func (s *ExtractorSuite) TestNetworkOrigin() {
	s.Run("datacenter range", func() {
		fp := s.extractor.Extract(Signals{ClientIP: "3.120.4.9"})
		s.Equal(OriginDatacenter, fp.Origin)
	})
	s.Run("residential", func() {
		fp := s.extractor.Extract(Signals{ClientIP: "190.21.44.7"})
		s.Equal(OriginResidential, fp.Origin)
	})
	s.Run("unparseable", func() {
		fp := s.extractor.Extract(Signals{ClientIP: "not-an-ip"})
		s.Equal(OriginUnknown, fp.Origin)
	})
}

func (s *ExtractorSuite) TestResolverFollowsTunablesReload() {
	s.Equal(OriginResidential, s.extractor.Extract(Signals{ClientIP: "198.51.100.9"}).Origin)

	next := config.Defaults()
	next.DatacenterCIDRs = append(next.DatacenterCIDRs, "198.51.100.0/24")
	s.Require().NoError(s.store.Replace(next))

	s.Equal(OriginDatacenter, s.extractor.Extract(Signals{ClientIP: "198.51.100.9"}).Origin)
}
