// Package types provides the data model shared by the store, the generation client and the REST API.
package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PricingTier is the pricing tier of a client's service offering.
type PricingTier string

// Pricing tiers.
const (
	PricingBasic      PricingTier = "basic"
	PricingStandard   PricingTier = "standard"
	PricingPremium    PricingTier = "premium"
	PricingEnterprise PricingTier = "enterprise"
)

// BrandSafetyLevel controls how conservative generated content must be.
type BrandSafetyLevel string

// Brand safety levels.
const (
	BrandSafetyLow    BrandSafetyLevel = "low"
	BrandSafetyMedium BrandSafetyLevel = "medium"
	BrandSafetyHigh   BrandSafetyLevel = "high"
)

// ClientStatus is the lifecycle status of a client profile.
type ClientStatus string

// Client statuses.
const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusPending  ClientStatus = "pending"
)

// Platform is a publishing platform.
type Platform string

// Supported platforms.
const (
	PlatformLinkedIn   Platform = "linkedin"
	PlatformNewsletter Platform = "newsletter"
	PlatformBlog       Platform = "blog"
	PlatformTwitter    Platform = "twitter"
)

// ContentType is a category of content a client wants produced.
type ContentType string

// Content types.
const (
	ContentEducational       ContentType = "educational"
	ContentThoughtLeadership ContentType = "thought_leadership"
	ContentPromotional       ContentType = "promotional"
	ContentCaseStudy         ContentType = "case_study"
	ContentNews              ContentType = "news"
)

// AssetType is the kind of a proof asset.
type AssetType string

// Proof asset types.
const (
	AssetTestimonial   AssetType = "testimonial"
	AssetCaseStudy     AssetType = "case_study"
	AssetCredential    AssetType = "credential"
	AssetAward         AssetType = "award"
	AssetCertification AssetType = "certification"
	AssetMediaMention  AssetType = "media_mention"
)

// ServiceOffering describes what the client sells.
type ServiceOffering struct {
	Services       []string    `json:"services" validate:"required,min=1,dive,required"`
	PricingTier    PricingTier `json:"pricing_tier,omitempty" validate:"omitempty,oneof=basic standard premium enterprise"`
	DeliveryMethod string      `json:"delivery_method,omitempty"`
	TargetMarket   string      `json:"target_market,omitempty"`
}

// ICPProfile is the client's ideal customer profile.
type ICPProfile struct {
	Industry        string   `json:"industry" validate:"required"`
	CompanySize     string   `json:"company_size" validate:"required"`
	PainPoints      []string `json:"pain_points" validate:"required,min=1,dive,required"`
	BudgetRange     string   `json:"budget_range,omitempty"`
	DecisionMakers  []string `json:"decision_makers,omitempty"`
	GeographicFocus string   `json:"geographic_focus,omitempty"`
	CompanyStage    string   `json:"company_stage,omitempty"`
}

// ContentPreferences captures where and how the client publishes.
type ContentPreferences struct {
	Platforms               []Platform    `json:"platforms" validate:"required,min=1,dive,oneof=linkedin newsletter blog twitter"`
	Frequency               string        `json:"frequency" validate:"required"`
	ContentTypes            []ContentType `json:"content_types" validate:"required,min=1,dive,oneof=educational thought_leadership promotional case_study news"`
	Tone                    string        `json:"tone,omitempty"`
	TopicsOfInterest        []string      `json:"topics_of_interest,omitempty"`
	ContentLengthPreference string        `json:"content_length_preference,omitempty"`
}

// ClientConstraints lists topics and compliance rules generated content must respect.
type ClientConstraints struct {
	BannedTopics            []string         `json:"banned_topics,omitempty"`
	ComplianceRequirements  []string         `json:"compliance_requirements,omitempty"`
	BrandSafetyLevel        BrandSafetyLevel `json:"brand_safety_level" validate:"oneof=low medium high"`
	ContentApprovalRequired bool             `json:"content_approval_required"`
	CompetitorMentions      string           `json:"competitor_mentions,omitempty"`
	SensitiveTopics         []string         `json:"sensitive_topics,omitempty"`
}

// DefaultConstraints returns the constraints applied when an intake omits them.
func DefaultConstraints() ClientConstraints {
	return ClientConstraints{
		BrandSafetyLevel:        BrandSafetyMedium,
		ContentApprovalRequired: true,
	}
}

// UnmarshalJSON fills omitted fields with DefaultConstraints values.
func (c *ClientConstraints) UnmarshalJSON(data []byte) error {
	type plain ClientConstraints
	p := plain(DefaultConstraints())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ClientConstraints(p)
	return nil
}

// VoiceExample is a sample of the client's published writing.
type VoiceExample struct {
	Content          string     `json:"content" validate:"required,min=10"`
	Platform         Platform   `json:"platform" validate:"required,oneof=linkedin newsletter blog twitter"`
	ContentType      string     `json:"content_type,omitempty"`
	PerformanceNotes string     `json:"performance_notes,omitempty"`
	DatePublished    *time.Time `json:"date_published,omitempty"`
}

// ProofAsset is a testimonial, case study or similar credibility asset.
type ProofAsset struct {
	AssetType AssetType      `json:"asset_type" validate:"required,oneof=testimonial case_study credential award certification media_mention"`
	Title     string         `json:"title" validate:"required,min=1"`
	Content   string         `json:"content,omitempty"`
	Source    string         `json:"source,omitempty"`
	URL       string         `json:"url,omitempty" validate:"omitempty,url"`
	Date      *time.Time     `json:"date,omitempty"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// ClientIntakeRequest is the body of a client intake form submission.
type ClientIntakeRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company,omitempty" validate:"max=255"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`

	ServiceOffering      ServiceOffering    `json:"service_offering" validate:"required"`
	ICPProfile           ICPProfile         `json:"icp_profile" validate:"required"`
	PositioningStatement string             `json:"positioning_statement" validate:"required,min=10,max=1000"`
	ContentPreferences   ContentPreferences `json:"content_preferences" validate:"required"`
	Constraints          *ClientConstraints `json:"constraints,omitempty"`

	VoiceExamples   []VoiceExample `json:"voice_examples,omitempty" validate:"max=10,dive"`
	ProofAssets     []ProofAsset   `json:"proof_assets,omitempty" validate:"max=20,dive"`
	AdditionalNotes string         `json:"additional_notes,omitempty" validate:"max=2000"`
}

// ClientProfile is a stored client.
type ClientProfile struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Company string    `json:"company,omitempty"`
	Website string    `json:"website,omitempty"`

	ServiceOffering      ServiceOffering    `json:"service_offering"`
	ICPProfile           ICPProfile         `json:"icp_profile"`
	PositioningStatement string             `json:"positioning_statement"`
	ContentPreferences   ContentPreferences `json:"content_preferences"`
	Constraints          ClientConstraints  `json:"constraints"`

	VoiceExamples   []VoiceExample `json:"voice_examples"`
	ProofAssets     []ProofAsset   `json:"proof_assets"`
	AdditionalNotes string         `json:"additional_notes,omitempty"`

	Status    ClientStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewClientProfile builds an unsaved profile from an intake request.
// The email is lower-cased so the uniqueness constraint is case-insensitive.
func NewClientProfile(req *ClientIntakeRequest) *ClientProfile {
	constraints := DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	voice := req.VoiceExamples
	if voice == nil {
		voice = []VoiceExample{}
	}
	proof := req.ProofAssets
	if proof == nil {
		proof = []ProofAsset{}
	}
	return &ClientProfile{
		Name:                 strings.TrimSpace(req.Name),
		Email:                NormalizeEmail(req.Email),
		Company:              strings.TrimSpace(req.Company),
		Website:              strings.TrimSpace(req.Website),
		ServiceOffering:      req.ServiceOffering,
		ICPProfile:           req.ICPProfile,
		PositioningStatement: req.PositioningStatement,
		ContentPreferences:   req.ContentPreferences,
		Constraints:          constraints,
		VoiceExamples:        voice,
		ProofAssets:          proof,
		AdditionalNotes:      req.AdditionalNotes,
		Status:               ClientStatusActive,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ClientProfileUpdate is a partial update; nil fields are left unchanged.
type ClientProfileUpdate struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=255"`
	Website *string `json:"website,omitempty" validate:"omitempty,url"`

	ServiceOffering      *ServiceOffering    `json:"service_offering,omitempty"`
	ICPProfile           *ICPProfile         `json:"icp_profile,omitempty"`
	PositioningStatement *string             `json:"positioning_statement,omitempty" validate:"omitempty,min=10,max=1000"`
	ContentPreferences   *ContentPreferences `json:"content_preferences,omitempty"`
	Constraints          *ClientConstraints  `json:"constraints,omitempty"`

	VoiceExamples   *[]VoiceExample `json:"voice_examples,omitempty" validate:"omitempty,max=10,dive"`
	ProofAssets     *[]ProofAsset   `json:"proof_assets,omitempty" validate:"omitempty,max=20,dive"`
	AdditionalNotes *string         `json:"additional_notes,omitempty" validate:"omitempty,max=2000"`

	Status *ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending"`
}

// IsEmpty reports whether the update carries no fields.
func (u *ClientProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Company == nil && u.Website == nil &&
		u.ServiceOffering == nil && u.ICPProfile == nil && u.PositioningStatement == nil &&
		u.ContentPreferences == nil && u.Constraints == nil && u.VoiceExamples == nil &&
		u.ProofAssets == nil && u.AdditionalNotes == nil && u.Status == nil
}

// ApplyTo merges the non-nil fields of the update into p.
func (u *ClientProfileUpdate) ApplyTo(p *ClientProfile) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		p.Email = NormalizeEmail(*u.Email)
	}
	if u.Company != nil {
		p.Company = strings.TrimSpace(*u.Company)
	}
	if u.Website != nil {
		p.Website = strings.TrimSpace(*u.Website)
	}
	if u.ServiceOffering != nil {
		p.ServiceOffering = *u.ServiceOffering
	}
	if u.ICPProfile != nil {
		p.ICPProfile = *u.ICPProfile
	}
	if u.PositioningStatement != nil {
		p.PositioningStatement = *u.PositioningStatement
	}
	if u.ContentPreferences != nil {
		p.ContentPreferences = *u.ContentPreferences
	}
	if u.Constraints != nil {
		p.Constraints = *u.Constraints
	}
	if u.VoiceExamples != nil {
		p.VoiceExamples = *u.VoiceExamples
	}
	if u.ProofAssets != nil {
		p.ProofAssets = *u.ProofAssets
	}
	if u.AdditionalNotes != nil {
		p.AdditionalNotes = *u.AdditionalNotes
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}

// ClientProfileResponse is the summary view of a client used in list responses.
type ClientProfileResponse struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Company        string       `json:"company,omitempty"`
	Website        string       `json:"website,omitempty"`
	Status         ClientStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ServiceSummary string       `json:"service_summary"`
	PlatformCount  int          `json:"platform_count"`
}

// NewClientProfileResponse summarizes a profile.
func NewClientProfileResponse(p *ClientProfile) ClientProfileResponse {
	return ClientProfileResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Company:        p.Company,
		Website:        p.Website,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		ServiceSummary: strings.Join(p.ServiceOffering.Services, ", "),
		PlatformCount:  len(p.ContentPreferences.Platforms),
	}
}

// ClientListResponse is one page of clients.
type ClientListResponse struct {
	Clients  []ClientProfileResponse `json:"clients"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}
