package approvals

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SeedAccount is a development account created on start
type SeedAccount struct {
	Name     string
	Email    string
	Password string
	Role     AdminRole
}

// DefaultRequesterSeeds are the development requester accounts
var DefaultRequesterSeeds = []SeedAccount{
	{Email: "user1@test.com", Password: "123456"},
	{Email: "user2@test.com", Password: "123456"},
}

// DefaultAdminSeeds are the development admin accounts, one per role
var DefaultAdminSeeds = []SeedAccount{
	{Name: "Admin User", Email: "admin@test.com", Password: "admin123", Role: RoleAdmin},
	{Name: "Moderator User", Email: "moderator@test.com", Password: "mod123", Role: RoleModerator},
	{Name: "Viewer User", Email: "viewer@test.com", Password: "viewer123", Role: RoleViewer},
}

type sampleTask struct {
	title       string
	description string
	priority    TaskPriority
	category    TaskCategory
	status      TaskStatus
	reason      string
	owner       int
	age         time.Duration
}

var sampleTasks = []sampleTask{
	{"Monitor replacement", "The office monitor is broken and needs replacing. 27 inch 4K preferred.", TaskPriorityHigh, TaskCategoryTechnicalSupport, TaskStatusPending, "", 0, 2 * time.Hour},
	{"Annual leave - March", "I would like to take annual leave between March 10 and 20.", TaskPriorityNormal, TaskCategoryLeaveRequest, TaskStatusApproved, "", 1, 24 * time.Hour},
	{"Printer cartridge order", "Black and color cartridges are needed for the LaserJet.", TaskPriorityNormal, TaskCategoryPurchasing, TaskStatusApproved, "", 0, 72 * time.Hour},
	{"VPN connection drops", "The VPN keeps disconnecting when working from home.", TaskPriorityUrgent, TaskCategoryTechnicalSupport, TaskStatusPending, "", 1, 4 * time.Hour},
	{"Desk lamp purchase", "Requesting an LED desk lamp for the workstation.", TaskPriorityLow, TaskCategoryPurchasing, TaskStatusRejected, "Could not be approved due to budget constraints.", 0, 120 * time.Hour},
	{"Meeting room booking", "Meeting room reservation for Friday 14:00-16:00.", TaskPriorityNormal, TaskCategoryOther, TaskStatusApproved, "", 1, 144 * time.Hour},
	{"Keyboard and mouse", "Requesting an ergonomic keyboard and mouse.", TaskPriorityHigh, TaskCategoryTechnicalSupport, TaskStatusPending, "", 0, time.Hour},
	{"Second monitor", "Requesting a second display for a dual monitor setup.", TaskPriorityLow, TaskCategoryPurchasing, TaskStatusRejected, "The current display was deemed sufficient.", 1, 168 * time.Hour},
	{"Remote work permission", "Requesting permission to work from home this week.", TaskPriorityNormal, TaskCategoryLeaveRequest, TaskStatusPending, "", 1, 6 * time.Hour},
	{"Lost access card", "I lost my office access card and need a new one.", TaskPriorityUrgent, TaskCategoryOther, TaskStatusApproved, "", 0, 7 * time.Hour},
}

// Seeder populates empty repositories with development data
type Seeder struct {
	repos      RepositoryManager
	hasher     PasswordAuthenticator
	logger     Logger
	now        func() time.Time
	requesters []SeedAccount
	admins     []SeedAccount
}

// NewSeeder returns a seeder using the default accounts
func NewSeeder(repos RepositoryManager, hasher PasswordAuthenticator, logger Logger) *Seeder {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Seeder{
		repos:      repos,
		hasher:     hasher,
		logger:     normalizeLogger(logger),
		now:        time.Now,
		requesters: DefaultRequesterSeeds,
		admins:     DefaultAdminSeeds,
	}
}

// Seed creates accounts that do not exist yet. With withTasks the sample
// tasks are added when the task store is empty.
func (s *Seeder) Seed(ctx context.Context, withTasks bool) error {
	owners := make([]string, 0, len(s.requesters))

	for _, seed := range s.requesters {
		account, err := s.repos.Requesters().GetByEmail(ctx, seed.Email)
		if err != nil {
			if !HasTextCode(err, TextCodeRequesterNotFound) {
				return err
			}
			hash, err := s.hasher.HashPassword(seed.Password)
			if err != nil {
				return err
			}
			account, err = s.repos.Requesters().Create(ctx, &RequesterAccount{
				ID:           uuid.New(),
				Email:        normalizeEmail(seed.Email),
				PasswordHash: hash,
			})
			if err != nil {
				return err
			}
			s.logger.Info("seeded requester %s", account.Email)
		}
		owners = append(owners, account.ID.String())
	}

	for _, seed := range s.admins {
		_, err := s.repos.AdminUsers().GetByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !HasTextCode(err, TextCodeAdminUserNotFound) {
			return err
		}
		hash, err := s.hasher.HashPassword(seed.Password)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		created, err := s.repos.AdminUsers().Create(ctx, &AdminUser{
			ID:           uuid.New(),
			Name:         seed.Name,
			Email:        normalizeEmail(seed.Email),
			Role:         seed.Role,
			PasswordHash: hash,
			CreatedAt:    &now,
			UpdatedAt:    &now,
		})
		if err != nil {
			return err
		}
		s.logger.Info("seeded admin %s (%s)", created.Email, created.Role)
	}

	if !withTasks || len(owners) == 0 {
		return nil
	}

	existing, err := s.repos.Tasks().List(ctx, TaskFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := s.now().UTC()
	for _, sample := range sampleTasks {
		task := &Task{
			ID:              uuid.New(),
			Title:           sample.title,
			Description:     sample.description,
			Priority:        sample.priority,
			Category:        sample.category,
			Status:          sample.status,
			CreatedBy:       owners[sample.owner%len(owners)],
			CreatedAt:       now.Add(-sample.age),
			RejectionReason: sample.reason,
		}
		if _, err := s.repos.Tasks().Create(ctx, task); err != nil {
			return err
		}
	}
	s.logger.Info("seeded %d sample tasks", len(sampleTasks))

	return nil
}
