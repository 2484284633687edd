package httpapi

import (
	"context"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/access"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/listing"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
)

// visibility resolves which clients and projects a caller may see.
type visibility struct {
	database            *gorm.DB
	restrictedListLimit int
}

func newVisibility(database *gorm.DB, restrictedListLimit int) visibility {
	if restrictedListLimit <= 0 {
		restrictedListLimit = access.DefaultRestrictedListLimit
	}
	return visibility{database: database, restrictedListLimit: restrictedListLimit}
}

// clientCriteria scopes lists keyed by client id. The first-N truncation of
// the limited scope applies only when truncate is set.
func (v visibility) clientCriteria(ctx context.Context, currentUser *CurrentUser, truncate bool) (listing.Criteria, error) {
	scope := access.ScopeFor(currentUser.Role)
	switch scope {
	case access.ScopeAll:
		return listing.Criteria{}, nil
	case access.ScopeOwnClient:
		return listing.Criteria{Restricted: true, AllowedKeys: nonEmptyKeys(currentUser.ClientID)}, nil
	case access.ScopeMemberProjects, access.ScopeMemberProjectsLimited:
		clientIDs, err := storage.MemberClientIDs(ctx, v.database, currentUser.ID)
		if err != nil {
			return listing.Criteria{}, err
		}
		criteria := listing.Criteria{Restricted: true, AllowedKeys: clientIDs}
		if truncate {
			criteria.Limit = access.LimitFor(scope, v.restrictedListLimit)
		}
		return criteria, nil
	default:
		return listing.Criteria{Restricted: true}, nil
	}
}

// projectCriteria scopes lists keyed by project id.
func (v visibility) projectCriteria(ctx context.Context, currentUser *CurrentUser) (listing.Criteria, error) {
	switch access.ScopeFor(currentUser.Role) {
	case access.ScopeAll:
		return listing.Criteria{}, nil
	case access.ScopeOwnClient:
		var projectIDs []string
		if currentUser.ClientID != "" {
			if err := v.database.WithContext(ctx).
				Model(&model.Project{}).
				Where("client_id = ?", currentUser.ClientID).
				Pluck("id", &projectIDs).Error; err != nil {
				return listing.Criteria{}, err
			}
		}
		return listing.Criteria{Restricted: true, AllowedKeys: projectIDs}, nil
	case access.ScopeMemberProjects, access.ScopeMemberProjectsLimited:
		projectIDs, err := storage.MemberProjectIDs(ctx, v.database, currentUser.ID)
		if err != nil {
			return listing.Criteria{}, err
		}
		return listing.Criteria{Restricted: true, AllowedKeys: projectIDs}, nil
	default:
		return listing.Criteria{Restricted: true}, nil
	}
}

func (v visibility) canSeeClient(ctx context.Context, currentUser *CurrentUser, clientID string) (bool, error) {
	criteria, err := v.clientCriteria(ctx, currentUser, false)
	if err != nil {
		return false, err
	}
	return criteriaAllows(criteria, clientID), nil
}

func (v visibility) canSeeProject(ctx context.Context, currentUser *CurrentUser, projectID string) (bool, error) {
	criteria, err := v.projectCriteria(ctx, currentUser)
	if err != nil {
		return false, err
	}
	return criteriaAllows(criteria, projectID), nil
}

func criteriaAllows(criteria listing.Criteria, key string) bool {
	if !criteria.Restricted {
		return true
	}
	for _, allowed := range criteria.AllowedKeys {
		if allowed == key {
			return true
		}
	}
	return false
}

func nonEmptyKeys(keys ...string) []string {
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			result = append(result, key)
		}
	}
	return result
}
