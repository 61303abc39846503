/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entity_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/tomoncle/querykit/entity"
	"github.com/tomoncle/querykit/internal/dbtest"
	"github.com/tomoncle/querykit/query"
)

func TestNewMemberAttachesTeam(t *testing.T) {
	team := entity.NewTeam("teamA")
	team.ID = 7
	m := entity.NewMember("member1", 10, team)

	assert.Same(t, team, m.Team)
	assert.Equal(t, int64(7), m.TeamID)
	assert.Equal(t, []*entity.Member{m}, team.Members)

	loner := entity.NewMember("loner", 1, nil)
	assert.Nil(t, loner.Team)
	assert.Zero(t, loner.TeamID)
}

func TestChangeTeam(t *testing.T) {
	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	teamA.ID, teamB.ID = 1, 2
	m1 := entity.NewMember("member1", 10, teamA)
	m2 := entity.NewMember("member2", 20, teamA)

	m1.ChangeTeam(teamB)
	assert.Same(t, teamB, m1.Team)
	assert.Equal(t, int64(2), m1.TeamID)
	assert.Equal(t, []*entity.Member{m2}, teamA.Members)
	assert.Equal(t, []*entity.Member{m1}, teamB.Members)

	m1.ChangeTeam(teamB)
	assert.Len(t, teamB.Members, 1)

	m1.ChangeTeam(nil)
	assert.Nil(t, m1.Team)
	assert.Zero(t, m1.TeamID)
	assert.Empty(t, teamB.Members)
}

func TestString(t *testing.T) {
	team := entity.NewTeam("teamA")
	team.ID = 1
	m := entity.NewMember("member1", 10, team)
	m.ID = 3

	assert.Equal(t, "Member(id=3, username=member1, age=10)", m.String())
	assert.Equal(t, "Team(id=1, name=teamA)", team.String())
}

func TestInsertSyncsTeamID(t *testing.T) {
	ctx := context.Background()
	tx := dbtest.Tx(t, dbtest.Open(t))

	team := entity.NewTeam("teamA")
	m := entity.NewMember("member1", 10, team)
	_, err := tx.NewInsert().Model(m).Exec(ctx)
	assert.ErrorIs(t, err, entity.ErrTeamNotPersisted)

	_, err = tx.NewInsert().Model(team).Exec(ctx)
	require.NoError(t, err)
	require.NotZero(t, team.ID)

	_, err = tx.NewInsert().Model(m).Exec(ctx)
	require.NoError(t, err)

	loaded := new(entity.Member)
	require.NoError(t, tx.NewSelect().Model(loaded).Relation("Team").Where("?TableAlias.id = ?", m.ID).Scan(ctx))
	assert.Equal(t, team.ID, loaded.TeamID)
	assert.Equal(t, "teamA", loaded.Team.Name)
}

func TestInsertHello(t *testing.T) {
	ctx := context.Background()
	tx := dbtest.Tx(t, dbtest.Open(t))

	before, err := tx.NewSelect().Model((*entity.Hello)(nil)).Count(ctx)
	require.NoError(t, err)

	first, second := new(entity.Hello), new(entity.Hello)
	_, err = tx.NewInsert().Model(first).Column("id").Exec(ctx)
	require.NoError(t, err)
	_, err = tx.NewInsert().Model(second).Column("id").Exec(ctx)
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	after, err := tx.NewSelect().Model((*entity.Hello)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)
}

func TestPathsMatchModels(t *testing.T) {
	tables := sqlitedialect.New().Tables()

	check := func(typ reflect.Type, table, alias string, columns ...query.Column) {
		t.Helper()
		schema := tables.Get(typ)
		assert.Equal(t, table, schema.Name)
		assert.Equal(t, alias, string(schema.Alias))
		for _, c := range columns {
			assert.True(t, schema.HasField(c.Name()), "%s has no column %s", schema.Name, c.Name())
		}
	}

	h, tm, m := entity.QHello, entity.QTeam, entity.QMember
	check(reflect.TypeFor[entity.Hello](), h.Table(), h.Alias(), h.ID.Column)
	check(reflect.TypeFor[entity.Team](), tm.Table(), tm.Alias(), tm.ID.Column, tm.Name.Column)
	check(reflect.TypeFor[entity.Member](), m.Table(), m.Alias(),
		m.ID.Column, m.Username.Column, m.Age.Column, m.TeamID.Column)

	rel := m.Team.JoinSpec()
	require.NotNil(t, rel)
	memberSchema := tables.Get(reflect.TypeFor[entity.Member]())
	bunRel, ok := memberSchema.Relations[rel.Name]
	require.True(t, ok, "no bun relation %s", rel.Name)
	assert.Equal(t, rel.Table, bunRel.JoinTable.Name)
	assert.Equal(t, rel.Alias, m.Team.Alias())
	assert.Equal(t, m.Alias(), rel.SourceAlias)
}
