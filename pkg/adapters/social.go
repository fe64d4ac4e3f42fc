package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
	sharedmath "github.com/jordigilh/reliefnet/pkg/shared/math"
)

const (
	socialBaseConfidence = 0.4
	socialConfidenceCap  = 0.95
)

// socialKeywordBuckets are the lowercase substring keywords that infer an
// event kind from free-text content. A post is discarded if none match.
var socialKeywordBuckets = []struct {
	kind     reports.EventKind
	keywords []string
}{
	{reports.RoadClosure, []string{
		"road closed", "road blocked", "can't get through", "impassable",
		"no access", "shut down", "closed off",
	}},
	{reports.BridgeCollapse, []string{
		"bridge out", "bridge collapsed", "bridge gone", "bridge washed away", "bridge destroyed",
	}},
	{reports.Flooding, []string{
		"flooded", "underwater", "water rising", "flash flood", "river overflowing", "submerged",
	}},
	{reports.RescueNeeded, []string{
		"trapped", "stranded", "need rescue", "help needed", "people stuck", "evacuate",
	}},
	{reports.SuppliesNeeded, []string{
		"need water", "need food", "need medicine", "running out", "no supplies", "desperate for",
	}},
	{reports.PowerOutage, []string{
		"power out", "no electricity", "blackout", "no power", "lights out",
	}},
}

type socialMediaFile struct {
	Posts []socialPost `json:"posts"`
}

type socialPost struct {
	ID                  string           `json:"id"`
	Timestamp           time.Time        `json:"timestamp"`
	Location            reports.Location `json:"location"`
	Content             string           `json:"content"`
	Platform            string           `json:"platform"`
	Verified            bool             `json:"verified"`
	IsLocal             bool             `json:"is_local"`
	HasPhoto            bool             `json:"has_photo"`
	HasVideo            bool             `json:"has_video"`
	Retweets            int              `json:"retweets"`
	Replies             int              `json:"replies"`
	IsNews              bool             `json:"is_news"`
	IsEmergencyServices bool             `json:"is_emergency_services"`
	Username            string           `json:"username,omitempty"`
}

// SocialAdapter infers event reports from social-media post content.
type SocialAdapter struct {
	Path   string
	Source DatasetSource
	Log    *logrus.Logger
}

func (a SocialAdapter) Name() string { return "social_media" }

func (a SocialAdapter) Gather(now time.Time, bbox geo.BoundingBox) []reports.Report {
	data, ok := readDataset(a.Source, a.Path, a.Name(), a.Log)
	if !ok {
		return nil
	}

	var file socialMediaFile
	if err := json.Unmarshal(data, &file); err != nil {
		appErr := appErrors.NewAdapterUnavailableError(a.Name(), err)
		a.Log.WithFields(appErrors.LogFields(appErr)).Warn("adapter: malformed social media dataset")
		return nil
	}

	candidates := make([]reports.Report, 0, len(file.Posts))
	for i, p := range file.Posts {
		kind, ok := inferSocialKind(p.Content)
		if !ok {
			continue
		}
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("social-%d-%d", p.Timestamp.Unix(), i)
		}
		candidates = append(candidates, reports.Report{
			ID:            id,
			Timestamp:     p.Timestamp,
			Kind:          kind,
			Location:      p.Location,
			Description:   p.Content,
			Source:        socialSourceTag(p.Platform),
			RawConfidence: socialConfidence(p),
			RawPayload:    socialPayload(p),
			ProvenanceTag: a.Name(),
			Metadata:      socialMetadata(p),
		})
	}
	return applyGatherContract(now, bbox, candidates)
}

func inferSocialKind(content string) (reports.EventKind, bool) {
	lower := strings.ToLower(content)
	for _, bucket := range socialKeywordBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.kind, true
			}
		}
	}
	return "", false
}

func socialSourceTag(platform string) reports.SourceTag {
	switch strings.ToLower(platform) {
	case "reddit":
		return reports.SourceReddit
	default:
		return reports.SourceTwitter
	}
}

func socialConfidence(p socialPost) float64 {
	conf := socialBaseConfidence
	if p.Verified {
		conf += 0.15
	}
	if p.IsLocal {
		conf += 0.10
	}
	if p.HasPhoto {
		conf += 0.20
	}
	if p.HasVideo {
		conf += 0.25
	}
	if p.Retweets > 10 {
		conf += 0.10
	}
	if p.IsNews {
		conf += 0.15
	}
	if p.IsEmergencyServices {
		conf += 0.25
	}
	return sharedmath.Clamp(conf, 0, socialConfidenceCap)
}

// socialCorroboration is reshares + replies, stored for C4's consensus
// confidence to weigh corroborated clusters — spec §4.1 defines the count
// but leaves its consumer to C4.
func socialCorroboration(p socialPost) int {
	return p.Retweets + p.Replies
}

func socialPayload(p socialPost) map[string]any {
	return map[string]any{
		"platform": p.Platform,
		"username": p.Username,
	}
}

func socialMetadata(p socialPost) map[string]string {
	return map[string]string{
		"corroboration_count": fmt.Sprintf("%d", socialCorroboration(p)),
	}
}
