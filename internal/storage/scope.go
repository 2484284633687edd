package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

// MemberProjectIDs lists the projects userID belongs to.
func MemberProjectIDs(ctx context.Context, database *gorm.DB, userID string) ([]string, error) {
	var projectIDs []string
	err := database.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("user_id = ?", userID).
		Order("project_id").
		Pluck("project_id", &projectIDs).Error
	return projectIDs, err
}

// MemberClientIDs lists the clients owning a project userID belongs to.
func MemberClientIDs(ctx context.Context, database *gorm.DB, userID string) ([]string, error) {
	var clientIDs []string
	err := database.WithContext(ctx).
		Model(&model.Project{}).
		Distinct("projects.client_id").
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.client_id").
		Pluck("projects.client_id", &clientIDs).Error
	return clientIDs, err
}
