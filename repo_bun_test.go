package approvals_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	approvals "github.com/goliatone/go-approvals"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, approvals.CreateSchema(context.Background(), db))
	return db
}

func TestBunRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repos := approvals.NewRepositoryManager(db)
	require.NoError(t, repos.Validate())

	t.Run("tasks round trip", func(t *testing.T) {
		task := &approvals.Task{
			ID:          uuid.New(),
			Title:       "Printer cartridge order",
			Description: "Black and color cartridges",
			Priority:    approvals.TaskPriorityNormal,
			Category:    approvals.TaskCategoryPurchasing,
			Status:      approvals.TaskStatusPending,
			CreatedBy:   "owner-1",
			CreatedAt:   fixedNow,
		}
		_, err := repos.Tasks().Create(ctx, task)
		require.NoError(t, err)

		stored, err := repos.Tasks().GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.Title, stored.Title)
		assert.Equal(t, approvals.TaskStatusPending, stored.Status)

		stored.Status = approvals.TaskStatusRejected
		stored.RejectionReason = "budget"
		_, err = repos.Tasks().Update(ctx, stored)
		require.NoError(t, err)

		reloaded, err := repos.Tasks().GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, approvals.TaskStatusRejected, reloaded.Status)
		assert.Equal(t, "budget", reloaded.RejectionReason)

		_, err = repos.Tasks().GetByID(ctx, uuid.New())
		requireTextCode(t, err, approvals.TextCodeTaskNotFound)
	})

	t.Run("task listing filters", func(t *testing.T) {
		for i, owner := range []string{"owner-2", "owner-2", "owner-3"} {
			_, err := repos.Tasks().Create(ctx, &approvals.Task{
				ID:          uuid.New(),
				Title:       "Listed",
				Description: "d",
				Priority:    approvals.TaskPriorityLow,
				Category:    approvals.TaskCategoryOther,
				Status:      approvals.TaskStatusPending,
				CreatedBy:   owner,
				CreatedAt:   fixedNow.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}

		mine, err := repos.Tasks().List(ctx, approvals.TaskFilter{CreatedBy: "owner-2"})
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		none, err := repos.Tasks().List(ctx, approvals.TaskFilter{CreatedBy: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("admin users", func(t *testing.T) {
		created, err := repos.AdminUsers().Create(ctx, &approvals.AdminUser{
			ID:           uuid.New(),
			Name:         "Bun Admin",
			Email:        "Bun@Test.com",
			Role:         approvals.RoleAdmin,
			PasswordHash: "hash",
		})
		require.NoError(t, err)

		byEmail, err := repos.AdminUsers().GetByEmail(ctx, "bun@test.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		_, err = repos.AdminUsers().Create(ctx, &approvals.AdminUser{
			ID:           uuid.New(),
			Name:         "Dup",
			Email:        "bun@test.com",
			Role:         approvals.RoleViewer,
			PasswordHash: "hash",
		})
		assert.Error(t, err)

		byEmail.Name = "Renamed"
		_, err = repos.AdminUsers().Update(ctx, byEmail)
		require.NoError(t, err)

		all, err := repos.AdminUsers().List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Renamed", all[0].Name)

		require.NoError(t, repos.AdminUsers().Delete(ctx, created.ID))
		requireTextCode(t, repos.AdminUsers().Delete(ctx, created.ID), approvals.TextCodeAdminUserNotFound)

		_, err = repos.AdminUsers().GetByEmail(ctx, "bun@test.com")
		requireTextCode(t, err, approvals.TextCodeAdminUserNotFound)
	})

	t.Run("requesters", func(t *testing.T) {
		created, err := repos.Requesters().Create(ctx, &approvals.RequesterAccount{
			ID:           uuid.New(),
			Email:        "req@test.com",
			PasswordHash: "hash",
		})
		require.NoError(t, err)

		byID, err := repos.Requesters().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "req@test.com", byID.Email)

		_, err = repos.Requesters().GetByEmail(ctx, "missing@test.com")
		requireTextCode(t, err, approvals.TextCodeRequesterNotFound)
	})
}

func TestSeeder_Bun(t *testing.T) {
	ctx := context.Background()
	repos := approvals.NewRepositoryManager(newTestDB(t))
	seeder := approvals.NewSeeder(repos, newTestHasher(), nopLogger{})

	require.NoError(t, seeder.Seed(ctx, true))
	require.NoError(t, seeder.Seed(ctx, true))

	admins, err := repos.AdminUsers().List(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, len(approvals.DefaultAdminSeeds))

	tasks, err := repos.Tasks().List(ctx, approvals.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 10)
}
