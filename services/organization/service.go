package organization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	orgs          repository.Repository[Organization]
	teams         repository.Repository[Team]
	members       repository.Repository[TeamMember]
	subscriptions repository.Repository[Subscription]
	profiles      repository.Repository[TeamProfile]
	materials     repository.Repository[UploadedMaterial]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		orgs:          repository.ProvideStore[Organization](p.DB),
		teams:         repository.ProvideStore[Team](p.DB),
		members:       repository.ProvideStore[TeamMember](p.DB),
		subscriptions: repository.ProvideStore[Subscription](p.DB),
		profiles:      repository.ProvideStore[TeamProfile](p.DB),
		materials:     repository.ProvideStore[UploadedMaterial](p.DB),
	}
}

// TrustSignals are the raw inputs the trust scorer derives a score from.
// Re-read on every scoring pass, never cached here.
type TrustSignals struct {
	AgeDays     int
	TeamCount   int64
	MemberCount int64
	HasPayment  bool
}

func (s *Service) GetTrustSignals(ctx context.Context, orgID string) (*TrustSignals, error) {
	org, err := s.orgs.FindOne(ctx, &Organization{ID: orgID})
	if err != nil {
		zap.L().Error("failed query get organization", zap.String("organization_id", orgID), zap.Error(err))
		return nil, err
	}
	if org == nil {
		return nil, errutil.NotFound("organization not found")
	}

	teamCount, err := s.teams.Count(ctx, &Team{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}

	memberCount, err := s.members.Count(ctx, &TeamMember{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.FindOne(ctx, &Subscription{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}

	hasPayment := sub != nil && sub.PlanType != PlanFree

	return &TrustSignals{
		AgeDays:     int(time.Since(org.CreatedAt).Hours() / 24),
		TeamCount:   teamCount,
		MemberCount: memberCount,
		HasPayment:  hasPayment,
	}, nil
}

// IsPaidTier reports whether the organization holds an active non-free
// subscription.
func (s *Service) IsPaidTier(ctx context.Context, orgID string) (bool, error) {
	sub, err := s.subscriptions.FindOne(ctx, &Subscription{
		OrganizationID: orgID,
		Status:         SubscriptionActive,
	})
	if err != nil {
		return false, err
	}
	return sub != nil && sub.PlanType != PlanFree, nil
}

func (s *Service) GetTeamProfile(ctx context.Context, teamID string) (*TeamProfile, error) {
	profile, err := s.profiles.FindOne(ctx, &TeamProfile{TeamID: teamID})
	if err != nil {
		zap.L().Error("failed query get team profile", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	if profile == nil {
		return nil, errutil.NotFound("team profile not found")
	}
	return profile, nil
}

// UpsertTeamProfile creates or replaces a team's profile, keyed by team id.
func (s *Service) UpsertTeamProfile(ctx context.Context, profile *TeamProfile) (*TeamProfile, error) {
	if profile.ID == "" {
		profile.ID = s.node.Generate().String()
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"team_role_description",
			"member_responsibilities",
			"past_activities_summary",
			"industry_sector",
			"team_size",
			"updated_at",
		}),
	}).Create(profile).Error; err != nil {
		zap.L().Error("failed upsert team profile", zap.String("team_id", profile.TeamID), zap.Error(err))
		return nil, err
	}

	return s.profiles.FindOne(ctx, &TeamProfile{TeamID: profile.TeamID})
}

func (s *Service) ListMaterials(ctx context.Context, teamID string) ([]*UploadedMaterial, error) {
	return s.materials.Find(ctx, &UploadedMaterial{TeamID: teamID})
}

const materialExcerptLimit = 2000

// CombineMaterialsText flattens a team's uploaded materials into one prompt
// context block. Each file contributes at most materialExcerptLimit bytes.
func CombineMaterialsText(materials []*UploadedMaterial) string {
	if len(materials) == 0 {
		return "No uploaded materials"
	}

	parts := make([]string, 0, len(materials))
	for _, m := range materials {
		text := m.ExtractedText
		if len(text) > materialExcerptLimit {
			text = text[:materialExcerptLimit]
		}
		parts = append(parts, fmt.Sprintf("File: %s\n%s", m.FileName, text))
	}

	return strings.Join(parts, "\n\n---\n\n")
}
