package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	t.Run("creator becomes manager", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob)

		project, err := f.projectStore.CreateProject(f.ctx, users[0].ID, ProjectCreateInput{
			Name:    "Apollo",
			Members: []ProjectMemberInput{{UserID: users[1].ID, RoleInProject: ProjectRoleSupport}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Apollo", project.Name)
		assert.Equal(t, ProjectPlanning, project.Status)
		require.NotNil(t, project.CreatedBy)
		assert.Equal(t, users[0].ID, *project.CreatedBy)

		roles := map[string]string{}
		for _, m := range project.Members {
			roles[m.UserID] = m.RoleInProject
		}
		assert.Equal(t, map[string]string{
			users[0].ID: ProjectRoleManager,
			users[1].ID: ProjectRoleSupport,
		}, roles)
	})

	t.Run("unknown member", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]

		_, err := f.projectStore.CreateProject(f.ctx, u.ID, ProjectCreateInput{
			Name:    "Apollo",
			Members: []ProjectMemberInput{{UserID: "ghost"}},
		})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("end before start", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]
		start := time.Now()

		_, err := f.projectStore.CreateProject(f.ctx, u.ID, ProjectCreateInput{
			Name:      "Apollo",
			StartDate: &start,
			EndDate:   ptr(start.Add(-time.Hour)),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestProjectMembers(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	users := seedUsers(f, alice, bob, carol)
	project := seedProject(f, "Apollo", users[0])

	member, err := f.projectStore.AddProjectMember(f.ctx, project.ID, ProjectMemberInput{UserID: users[1].ID})
	require.NoError(t, err)
	assert.Equal(t, ProjectRoleMember, member.RoleInProject)
	assert.Equal(t, "bob", member.Username)

	ok, err := f.projectStore.IsProjectMember(f.ctx, project.ID, users[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	projects, err := f.projectStore.GetUserProjects(f.ctx, users[1].ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, project.ID, projects[0].ID)

	require.NoError(t, f.projectStore.RemoveProjectMember(f.ctx, project.ID, users[1].ID))
	assert.ErrorIs(t, f.projectStore.RemoveProjectMember(f.ctx, project.ID, users[1].ID), ErrInvalidMember)

	_, err = f.projectStore.AddProjectMember(f.ctx, "missing", ProjectMemberInput{UserID: users[2].ID})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUpdateAndDeleteProject(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	u := seedUsers(f, alice)[0]
	project := seedProject(f, "Apollo", u)

	updated, err := f.projectStore.UpdateProject(f.ctx, project.ID, ProjectUpdateInput{
		Name:   ptr("Artemis"),
		Status: ptr(ProjectActive),
	})
	require.NoError(t, err)
	assert.Equal(t, "Artemis", updated.Name)
	assert.Equal(t, ProjectActive, updated.Status)

	_, err = f.projectStore.UpdateProject(f.ctx, "missing", ProjectUpdateInput{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	require.NoError(t, f.projectStore.DeleteProject(f.ctx, project.ID))
	assert.ErrorIs(t, f.projectStore.DeleteProject(f.ctx, project.ID), ErrProjectNotFound)

	projects, err := f.projectStore.GetProjects(f.ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
