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

package querykit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit"
	"github.com/tomoncle/querykit/entity"
	"github.com/tomoncle/querykit/internal/dbtest"
	"github.com/tomoncle/querykit/internal/fixture"
	"github.com/tomoncle/querykit/query"
	"github.com/tomoncle/querykit/types"
)

func newMemberService(t *testing.T) (context.Context, querykit.Service[entity.Member], *fixture.Fixture) {
	t.Helper()
	ctx := context.Background()
	tx := dbtest.Tx(t, dbtest.Open(t))
	f, err := fixture.Load(ctx, tx)
	require.NoError(t, err)
	return ctx, querykit.NewServiceWithDB[entity.Member](tx), f
}

func TestServiceTemplateQuery(t *testing.T) {
	ctx, svc, f := newMemberService(t)

	members, err := svc.Query(ctx, "SELECT * FROM member WHERE username = :username", map[string]any{"username": "member1"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, f.Member("member1").ID, members[0].ID)

	_, err = svc.Query(ctx, "SELECT * FROM member WHERE username = :username", nil)
	assert.ErrorIs(t, err, query.ErrUnboundParameter)
}

func TestServiceBuilder(t *testing.T) {
	ctx, svc, _ := newMemberService(t)
	m := entity.QMember

	single, err := svc.FindOne(ctx, m.Username.Eq("member1"))
	require.NoError(t, err)

	skipped, err := svc.FindOne(ctx, m.Username.Eq("member1"), m.Age.Eq(10), nil)
	require.NoError(t, err)

	chained, err := svc.Select().Where(m.Username.Eq("member1").And(m.Age.Eq(10))).FetchOne(ctx)
	require.NoError(t, err)

	assert.Equal(t, single.ID, skipped.ID)
	assert.Equal(t, single.ID, chained.ID)
	assert.Equal(t, 10, chained.Age)
}

func TestServiceSingleResultErrors(t *testing.T) {
	ctx, svc, _ := newMemberService(t)
	m := entity.QMember

	_, err := svc.FindOne(ctx, m.Username.Eq("nobody"))
	assert.ErrorIs(t, err, query.ErrNoResult)
	assert.True(t, query.IsNoUniqueResult(err))

	_, err = svc.FindOne(ctx, m.Age.Goe(20))
	assert.ErrorIs(t, err, query.ErrNonUniqueResult)

	none, err := svc.List(ctx, m.Username.Eq("nobody"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceFetchJoin(t *testing.T) {
	ctx, svc, _ := newMemberService(t)
	m := entity.QMember

	members, err := svc.Select().FetchJoin(m.Team).OrderBy(m.ID.Asc()).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, members, 4)

	teams := map[string]int{}
	for _, member := range members {
		require.NotNil(t, member.Team, member.Username)
		assert.Equal(t, member.TeamID, member.Team.ID)
		teams[member.Team.Name]++
	}
	assert.Equal(t, map[string]int{"teamA": 2, "teamB": 2}, teams)
}

func TestServiceWrites(t *testing.T) {
	ctx, svc, f := newMemberService(t)
	m := entity.QMember

	member5 := entity.NewMember("member5", 50, f.TeamA)
	require.NoError(t, svc.Save(ctx, member5))
	require.NotZero(t, member5.ID)

	member5.Age = 55
	require.NoError(t, svc.Update(ctx, member5))
	got, err := svc.Get(ctx, member5.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, got.Age)
	assert.Equal(t, f.TeamA.ID, got.TeamID)

	count, err := svc.Count(ctx, m.TeamID.Eq(f.TeamA.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = svc.Select().Join(m.Team).Where(m.Team.Name.Eq("teamB")).FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := svc.Page(ctx, types.NewPageRequest(1, 2, m.Age.Gt(10), m.Age.Desc()))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "member5", page.Items[0].Username)

	require.NoError(t, svc.Delete(ctx, member5.ID))
	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
