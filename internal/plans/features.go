package plans

import "encoding/json"

// SearchPriority orders listings within search results.
type SearchPriority int

const (
	SearchStandard SearchPriority = iota
	SearchPriorityBoost
)

func (p SearchPriority) String() string {
	if p == SearchPriorityBoost {
		return "priority"
	}
	return "standard"
}

// MarshalJSON renders the priority by name.
func (p SearchPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Features is the capability record granted by a tier. Every field is
// either a bool or an integer quota so tiers can be compared field by field.
type Features struct {
	MaxLocations   int `json:"maxLocations"`
	MaxPhotos      int `json:"maxPhotos"`
	MaxJobPostings int `json:"maxJobPostings"`

	HasContactForm       bool `json:"hasContactForm"`
	HasContactInbox      bool `json:"hasContactInbox"`
	HasCommunications    bool `json:"hasCommunications"`
	HasMedia             bool `json:"hasMedia"`
	HasPhotoGallery      bool `json:"hasPhotoGallery"`
	HasVideoEmbed        bool `json:"hasVideoEmbed"`
	HasVerifiedBadge     bool `json:"hasVerifiedBadge"`
	HasAnalytics         bool `json:"hasAnalytics"`
	HasHomepagePlacement bool `json:"hasHomepagePlacement"`
	HasFeaturedAddon     bool `json:"hasFeaturedAddonEligibility"`
	HasGoogleRating      bool `json:"hasGoogleRating"`

	HasAgeRange    bool `json:"hasAgeRange"`
	HasLanguages   bool `json:"hasLanguages"`
	HasDiagnoses   bool `json:"hasDiagnoses"`
	HasSpecialties bool `json:"hasSpecialties"`

	SearchPriority SearchPriority `json:"searchPriority"`
}

// "Unlimited" is a large finite quota so numeric comparisons stay simple.
const unlimited = 999

var paidFeatures = Features{
	HasContactForm:    true,
	HasContactInbox:   true,
	HasCommunications: true,
	HasMedia:          true,
	HasPhotoGallery:   true,
	HasVideoEmbed:     true,
	HasVerifiedBadge:  true,
	HasAnalytics:      true,
	HasFeaturedAddon:  true,
	HasGoogleRating:   true,
	HasAgeRange:       true,
	HasLanguages:      true,
	HasDiagnoses:      true,
	HasSpecialties:    true,
	SearchPriority:    SearchPriorityBoost,
}

var featureTable = map[Tier]Features{
	TierFree: {
		MaxLocations:   1,
		MaxPhotos:      0,
		MaxJobPostings: 1,
		SearchPriority: SearchStandard,
	},
	TierPro:        withQuotas(paidFeatures, 5, 10, 5, false),
	TierEnterprise: withQuotas(paidFeatures, unlimited, 10, unlimited, true),
}

func withQuotas(base Features, locations, photos, jobs int, homepage bool) Features {
	base.MaxLocations = locations
	base.MaxPhotos = photos
	base.MaxJobPostings = jobs
	base.HasHomepagePlacement = homepage
	return base
}

// FeaturesFor returns the capability record for a tier. Unknown tiers get
// the free record; the lookup never fails.
func FeaturesFor(t Tier) Features {
	if f, ok := featureTable[t]; ok {
		return f
	}
	return featureTable[TierFree]
}

// Feature names a single gated capability.
type Feature string

const (
	FeatureLocations         Feature = "maxLocations"
	FeaturePhotos            Feature = "maxPhotos"
	FeatureJobPostings       Feature = "maxJobPostings"
	FeatureContactForm       Feature = "hasContactForm"
	FeatureContactInbox      Feature = "hasContactInbox"
	FeatureCommunications    Feature = "hasCommunications"
	FeatureMedia             Feature = "hasMedia"
	FeaturePhotoGallery      Feature = "hasPhotoGallery"
	FeatureVideoEmbed        Feature = "hasVideoEmbed"
	FeatureVerifiedBadge     Feature = "hasVerifiedBadge"
	FeatureAnalytics         Feature = "hasAnalytics"
	FeatureHomepagePlacement Feature = "hasHomepagePlacement"
	FeatureFeaturedAddon     Feature = "hasFeaturedAddonEligibility"
	FeatureGoogleRating      Feature = "hasGoogleRating"
	FeatureAgeRange          Feature = "hasAgeRange"
	FeatureLanguages         Feature = "hasLanguages"
	FeatureDiagnoses         Feature = "hasDiagnoses"
	FeatureSpecialties       Feature = "hasSpecialties"
	FeatureSearchPriority    Feature = "searchPriority"
)

// Has reports whether the record grants the feature. Quotas count as
// granted when positive.
func (f Features) Has(feature Feature) bool {
	switch feature {
	case FeatureLocations:
		return f.MaxLocations > 0
	case FeaturePhotos:
		return f.MaxPhotos > 0
	case FeatureJobPostings:
		return f.MaxJobPostings > 0
	case FeatureContactForm:
		return f.HasContactForm
	case FeatureContactInbox:
		return f.HasContactInbox
	case FeatureCommunications:
		return f.HasCommunications
	case FeatureMedia:
		return f.HasMedia
	case FeaturePhotoGallery:
		return f.HasPhotoGallery
	case FeatureVideoEmbed:
		return f.HasVideoEmbed
	case FeatureVerifiedBadge:
		return f.HasVerifiedBadge
	case FeatureAnalytics:
		return f.HasAnalytics
	case FeatureHomepagePlacement:
		return f.HasHomepagePlacement
	case FeatureFeaturedAddon:
		return f.HasFeaturedAddon
	case FeatureGoogleRating:
		return f.HasGoogleRating
	case FeatureAgeRange:
		return f.HasAgeRange
	case FeatureLanguages:
		return f.HasLanguages
	case FeatureDiagnoses:
		return f.HasDiagnoses
	case FeatureSpecialties:
		return f.HasSpecialties
	case FeatureSearchPriority:
		return f.SearchPriority > SearchStandard
	default:
		return false
	}
}

// MinimumTier returns the lowest tier granting the feature, or false when
// no tier does.
func MinimumTier(feature Feature) (Tier, bool) {
	for _, t := range Tiers {
		if FeaturesFor(t).Has(feature) {
			return t, true
		}
	}
	return "", false
}

// FeatureInfo is display copy for upgrade prompts.
type FeatureInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	UpgradeMessage string `json:"upgradeMessage"`
}

var featureInfo = map[Feature]FeatureInfo{
	FeatureLocations:         {"Service Locations", "Number of physical locations you can list", "Upgrade to add more service locations"},
	FeaturePhotos:            {"Photo Gallery", "Number of photos you can add to your listing", "Upgrade to Pro to showcase your facility with photos"},
	FeatureJobPostings:       {"Job Postings", "Number of open positions you can advertise", "Upgrade to post more jobs"},
	FeatureContactForm:       {"Contact Form", "Allow families to contact you directly through your listing", "Upgrade to Pro to receive inquiries through your listing"},
	FeatureContactInbox:      {"Inquiry Inbox", "Read and respond to family inquiries", "Upgrade to Pro to receive and manage family inquiries"},
	FeatureCommunications:    {"Client Communications", "Send templated emails and track client communications", "Upgrade to Pro for client communications"},
	FeatureMedia:             {"Photos & Video", "Showcase your facility and team", "Upgrade to Pro to add photos and video"},
	FeaturePhotoGallery:      {"Photo Gallery", "Display photos of your facility and team", "Upgrade to Pro to add a photo gallery"},
	FeatureVideoEmbed:        {"Video Embed", "Add a YouTube or Vimeo video to your listing", "Upgrade to Pro to add a video to your listing"},
	FeatureVerifiedBadge:     {"Verified Badge", "Display a verified badge on your listing", "Upgrade to Pro to get a verified badge"},
	FeatureAnalytics:         {"Analytics Dashboard", "Track views, clicks, and inquiries", "Upgrade to Pro to access analytics"},
	FeatureHomepagePlacement: {"Homepage Placement", "Featured placement on the homepage", "Upgrade to Enterprise for homepage placement"},
	FeatureFeaturedAddon:     {"Featured Add-on", "Eligibility for the Featured add-on", "Upgrade to Pro to access Featured add-on"},
	FeatureGoogleRating:      {"Google Star Rating", "Display your Google Business star rating on your listing", "Upgrade to Pro to show your Google rating"},
	FeatureAgeRange:          {"Age Range", "Display the age range you serve on your listing", "Upgrade to Pro to display ages served"},
	FeatureLanguages:         {"Languages Spoken", "Display languages your team speaks", "Upgrade to Pro to display languages spoken"},
	FeatureDiagnoses:         {"Diagnoses Supported", "Display diagnoses your practice specializes in", "Upgrade to Pro to display diagnoses supported"},
	FeatureSpecialties:       {"Clinical Specialties", "Display your clinical specialties and services", "Upgrade to Pro to display clinical specialties"},
	FeatureSearchPriority:    {"Search Priority", "Higher ranking in search results", "Upgrade to Pro for priority search ranking"},
}

// Info returns display copy for a feature.
func Info(feature Feature) FeatureInfo {
	if info, ok := featureInfo[feature]; ok {
		return info
	}
	return FeatureInfo{Name: string(feature), UpgradeMessage: "Upgrade your plan to unlock this feature"}
}
