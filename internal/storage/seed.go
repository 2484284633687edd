package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/invoice"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "ClientDesk@2024"

var ErrMissingPasswordHasher = errors.New("storage: missing password hasher")

// PasswordHasher turns a plain password into a stored hash.
type PasswordHasher func(password string) (string, error)

// SeedResult reports what SeedDemoData inserted.
type SeedResult struct {
	Skipped  bool
	Clients  int
	Users    int
	Projects int
	Invoices int
	Meetings int
}

type demoUser struct {
	email  string
	name   string
	nameEn string
	role   model.Role
	client int
}

func demoDate(year int, month time.Month, day int) *time.Time {
	value := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &value
}

func demoClientInputs() []model.ClientInput {
	return []model.ClientInput{
		{
			Name: "شركة التقنية المتقدمة", NameEn: "Advanced Technology Company",
			Industry: "التقنية", IndustryEn: "Technology",
			ContactName: "أحمد محمد", ContactNameEn: "Ahmed Mohammed",
			ContactPosition: "المدير التنفيذي", ContactPositionEn: "CEO",
			ContactEmail: "ahmed@advtech.sa", ContactPhone: "+966501234567",
			Address: "الرياض، المملكة العربية السعودية", AddressEn: "Riyadh, Saudi Arabia",
			EstablishedAt: demoDate(2015, time.March, 15), RelationshipStartedAt: demoDate(2023, time.January, 10),
			Status: model.ClientStatusActive, TotalProjects: 5, ActiveProjects: 2, CompletedProjects: 3,
			TotalValue: 850000, PaidValue: 650000, Satisfaction: 95,
			Tags: []string{"تقنية", "تحول رقمي"}, TagsEn: []string{"Technology", "Digital Transformation"},
		},
		{
			Name: "مجموعة الخليج التجارية", NameEn: "Gulf Trading Group",
			Industry: "التجارة", IndustryEn: "Trading",
			ContactName: "فاطمة علي", ContactNameEn: "Fatima Ali",
			ContactPosition: "مديرة العمليات", ContactPositionEn: "Operations Director",
			ContactEmail: "fatima@gulftrading.sa", ContactPhone: "+966502345678",
			Address: "جدة، المملكة العربية السعودية", AddressEn: "Jeddah, Saudi Arabia",
			EstablishedAt: demoDate(2010, time.June, 20), RelationshipStartedAt: demoDate(2022, time.August, 5),
			Status: model.ClientStatusActive, TotalProjects: 3, ActiveProjects: 1, CompletedProjects: 2,
			TotalValue: 450000, PaidValue: 450000, Satisfaction: 88,
			Tags: []string{"تجارة", "تجزئة"}, TagsEn: []string{"Trading", "Retail"},
		},
		{
			Name: "مؤسسة البناء الحديث", NameEn: "Modern Construction Est.",
			Industry: "الإنشاءات", IndustryEn: "Construction",
			ContactName: "خالد السعيد", ContactNameEn: "Khalid Alsaeed",
			ContactPosition: "مدير المشاريع", ContactPositionEn: "Projects Manager",
			ContactEmail: "khalid@modernbuild.sa", ContactPhone: "+966503456789",
			Address: "الدمام، المملكة العربية السعودية", AddressEn: "Dammam, Saudi Arabia",
			EstablishedAt: demoDate(2018, time.September, 1),
			Status: model.ClientStatusProspect, Satisfaction: 0,
			Tags: []string{"إنشاءات"}, TagsEn: []string{"Construction"},
		},
		{
			Name: "مستشفى الرعاية الطبية", NameEn: "Medical Care Hospital",
			Industry: "الرعاية الصحية", IndustryEn: "Healthcare",
			ContactName: "نورة القحطاني", ContactNameEn: "Noura Alqahtani",
			ContactPosition: "مديرة الجودة", ContactPositionEn: "Quality Director",
			ContactEmail: "noura@medicalcare.sa", ContactPhone: "+966504567890",
			Address: "الرياض، المملكة العربية السعودية", AddressEn: "Riyadh, Saudi Arabia",
			RelationshipStartedAt: demoDate(2021, time.February, 14),
			Status: model.ClientStatusInactive, TotalProjects: 2, CompletedProjects: 2,
			TotalValue: 300000, PaidValue: 280000, Satisfaction: 76,
			Tags: []string{"صحة"}, TagsEn: []string{"Healthcare"},
		},
	}
}

var demoUsers = []demoUser{
	{email: "admin@clientdesk.sa", name: "مدير النظام", nameEn: "System Administrator", role: model.RoleSystemAdmin, client: -1},
	{email: "sara@clientdesk.sa", name: "سارة الأحمد", nameEn: "Sara Alahmad", role: model.RoleProjectManager, client: -1},
	{email: "omar@clientdesk.sa", name: "عمر الزهراني", nameEn: "Omar Alzahrani", role: model.RoleConsultant, client: -1},
	{email: "layla@clientdesk.sa", name: "ليلى الحربي", nameEn: "Layla Alharbi", role: model.RoleSubConsultant, client: -1},
	{email: "ahmed@advtech.sa", name: "أحمد محمد", nameEn: "Ahmed Mohammed", role: model.RoleMainClient, client: 0},
	{email: "yousef@advtech.sa", name: "يوسف العتيبي", nameEn: "Yousef Alotaibi", role: model.RoleSubClient, client: 0},
}

// SeedDemoData inserts the demo dataset into an empty database. It does
// nothing when any user already exists.
func SeedDemoData(ctx context.Context, database *gorm.DB, hashPassword PasswordHasher, now time.Time) (SeedResult, error) {
	if hashPassword == nil {
		return SeedResult{}, ErrMissingPasswordHasher
	}
	var existingUsers int64
	if err := database.WithContext(ctx).Model(&model.User{}).Count(&existingUsers).Error; err != nil {
		return SeedResult{}, err
	}
	if existingUsers > 0 {
		return SeedResult{Skipped: true}, nil
	}

	passwordHash, err := hashPassword(DemoPassword)
	if err != nil {
		return SeedResult{}, fmt.Errorf("storage: hash demo password: %w", err)
	}

	result := SeedResult{}
	err = database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		clients := make([]model.Client, 0, len(demoClientInputs()))
		for _, input := range demoClientInputs() {
			client, clientErr := model.NewClient(input)
			if clientErr != nil {
				return clientErr
			}
			if createErr := transaction.Create(&client).Error; createErr != nil {
				return createErr
			}
			clients = append(clients, client)
		}
		result.Clients = len(clients)

		users := make([]model.User, 0, len(demoUsers))
		for _, seed := range demoUsers {
			clientID := ""
			if seed.client >= 0 {
				clientID = clients[seed.client].ID
			}
			user, userErr := model.NewUser(model.UserInput{
				Email:        seed.email,
				Name:         seed.name,
				NameEn:       seed.nameEn,
				Role:         string(seed.role),
				ClientID:     clientID,
				PasswordHash: passwordHash,
			})
			if userErr != nil {
				return userErr
			}
			if createErr := transaction.Create(&user).Error; createErr != nil {
				return createErr
			}
			users = append(users, user)
		}
		result.Users = len(users)
		projectManager, consultant, subConsultant, mainClient, subClient := users[1], users[2], users[3], users[4], users[5]

		projects := make([]model.Project, 0, 2)
		for _, input := range []model.ProjectInput{
			{
				ClientID: clients[0].ID, Name: "التحول الرقمي للعمليات", NameEn: "Operations Digital Transformation",
				Status: model.ProjectStatusActive, StartDate: demoDate(2024, time.January, 15), EndDate: demoDate(2024, time.December, 31),
				Budget: 450000,
			},
			{
				ClientID: clients[1].ID, Name: "إعادة هيكلة سلسلة الإمداد", NameEn: "Supply Chain Restructuring",
				Status: model.ProjectStatusPlanning, StartDate: demoDate(2024, time.April, 1), Budget: 200000,
			},
		} {
			project, projectErr := model.NewProject(input)
			if projectErr != nil {
				return projectErr
			}
			if createErr := transaction.Create(&project).Error; createErr != nil {
				return createErr
			}
			projects = append(projects, project)
		}
		result.Projects = len(projects)

		memberships := []struct {
			project int
			user    model.User
		}{
			{project: 0, user: projectManager},
			{project: 0, user: consultant},
			{project: 0, user: subConsultant},
			{project: 0, user: mainClient},
			{project: 0, user: subClient},
			{project: 1, user: projectManager},
			{project: 1, user: consultant},
		}
		for _, membership := range memberships {
			member, memberErr := model.NewProjectMember(model.ProjectMemberInput{
				ProjectID:  projects[membership.project].ID,
				UserID:     membership.user.ID,
				MemberType: string(model.MemberTypeForRole(membership.user.Role)),
			})
			if memberErr != nil {
				return memberErr
			}
			if createErr := transaction.Create(&member).Error; createErr != nil {
				return createErr
			}
		}

		deliverable, deliverableErr := model.NewDeliverable(model.DeliverableInput{
			ProjectID: projects[0].ID,
			Title:     "تقرير تقييم الوضع الراهن",
			TitleEn:   "Current State Assessment Report",
			DueDate:   demoDate(2024, time.March, 31),
			Status:    model.DeliverableStatusInProgress,
		})
		if deliverableErr != nil {
			return deliverableErr
		}
		if createErr := transaction.Create(&deliverable).Error; createErr != nil {
			return createErr
		}

		for _, assignmentInput := range []model.DeliverableAssignmentInput{
			{DeliverableID: deliverable.ID, UserID: consultant.ID, Role: string(model.AssignmentRoleOwner)},
			{DeliverableID: deliverable.ID, UserID: subConsultant.ID, Role: string(model.AssignmentRoleContributor)},
		} {
			assignment, assignmentErr := model.NewDeliverableAssignment(assignmentInput)
			if assignmentErr != nil {
				return assignmentErr
			}
			if createErr := transaction.Create(&assignment).Error; createErr != nil {
				return createErr
			}
		}

		grantExpiry := now.UTC().AddDate(0, 1, 0)
		grant, grantErr := model.NewDeliverableGrant(model.DeliverableGrantInput{
			DeliverableID:   deliverable.ID,
			GrantedByUserID: mainClient.ID,
			GranteeUserID:   subClient.ID,
			AccessLevel:     string(model.AccessLevelComment),
			ExpiresAt:       &grantExpiry,
		}, now)
		if grantErr != nil {
			return grantErr
		}
		if createErr := transaction.Create(&grant).Error; createErr != nil {
			return createErr
		}

		issueDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		demoInvoice, invoiceErr := model.NewInvoice(model.InvoiceInput{
			ClientID:  clients[0].ID,
			ProjectID: projects[0].ID,
			IssueDate: issueDate,
			DueDate:   issueDate.AddDate(0, 0, 30),
			Items: []model.InvoiceItemInput{
				{Description: "استشارات التحول الرقمي", DescriptionEn: "Digital transformation consulting", Quantity: 10, UnitPrice: 5000},
			},
		})
		if invoiceErr != nil {
			return invoiceErr
		}
		invoice.Apply(&demoInvoice)
		if createErr := CreateInvoice(ctx, transaction, &demoInvoice); createErr != nil {
			return createErr
		}
		result.Invoices = 1

		meeting, meetingErr := model.NewMeeting(model.MeetingInput{
			ClientID:        clients[0].ID,
			ProjectID:       projects[0].ID,
			Title:           "اجتماع متابعة المرحلة الأولى",
			TitleEn:         "Phase one follow-up",
			ScheduledAt:     now.UTC().Add(72 * time.Hour).Truncate(time.Hour),
			Kind:            model.MeetingKindOnline,
			MeetingURL:      "https://meet.clientdesk.sa/phase-one",
			Attendees:       []string{projectManager.Name, consultant.Name, mainClient.Name},
			CreatedByUserID: projectManager.ID,
		})
		if meetingErr != nil {
			return meetingErr
		}
		if createErr := transaction.Create(&meeting).Error; createErr != nil {
			return createErr
		}
		result.Meetings = 1
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
