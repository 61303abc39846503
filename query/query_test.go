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

package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/entity"
	"github.com/tomoncle/querykit/internal/dbtest"
	"github.com/tomoncle/querykit/internal/fixture"
	"github.com/tomoncle/querykit/query"
)

func setup(t *testing.T) (context.Context, *query.Factory) {
	t.Helper()
	ctx := context.Background()
	tx := dbtest.Tx(t, dbtest.Open(t))
	_, err := fixture.Load(ctx, tx)
	require.NoError(t, err)
	return ctx, query.NewFactory(tx)
}

func usernames(members []*entity.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Username)
	}
	return out
}

func TestFetchOne(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	found, err := query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("member1")).FetchOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member1", found.Username)
	assert.Equal(t, 10, found.Age)

	_, err = query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("nobody")).FetchOne(ctx)
	assert.ErrorIs(t, err, query.ErrNoResult)
	assert.True(t, query.IsNoUniqueResult(err))

	_, err = query.SelectFrom(f, m.EntityPath).Where(m.Age.Goe(20)).FetchOne(ctx)
	assert.ErrorIs(t, err, query.ErrNonUniqueResult)
	assert.True(t, query.IsNoUniqueResult(err))

	_, err = query.SelectFrom(f, m.EntityPath).Where(m.Age.Goe(20)).Limit(1).FetchOne(ctx)
	assert.ErrorIs(t, err, query.ErrNonUniqueResult)

	last, err := query.SelectFrom(f, m.EntityPath).Where(m.Age.Goe(20)).OrderBy(m.Age.Asc()).Offset(2).Limit(1).FetchOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member4", last.Username)
}

func TestFetchFirst(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	first, err := query.SelectFrom(f, m.EntityPath).OrderBy(m.Age.Desc()).FetchFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member4", first.Username)

	_, err = query.SelectFrom(f, m.EntityPath).Where(m.Age.Gt(100)).FetchFirst(ctx)
	assert.ErrorIs(t, err, query.ErrNoResult)
}

func TestFetchOrderingAndPaging(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember
	q := query.SelectFrom(f, m.EntityPath).Where(m.Age.Goe(20)).OrderBy(m.Age.Desc())

	all, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member4", "member3", "member2"}, usernames(all))

	page, err := q.Offset(1).Limit(1).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member3"}, usernames(page))

	count, err := q.Limit(1).FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	none, err := query.SelectFrom(f, m.EntityPath).Where(m.Username.In()).Fetch(ctx)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPathOperators(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember
	cases := []struct {
		name string
		pred query.Predicate
		want []string
	}{
		{"in", m.Username.In("member1", "member3"), []string{"member1", "member3"}},
		{"not in", m.Username.NotIn("member1", "member3"), []string{"member2", "member4"}},
		{"between", m.Age.Between(20, 30), []string{"member2", "member3"}},
		{"lt", m.Age.Lt(20), []string{"member1"}},
		{"loe", m.Age.Loe(20), []string{"member1", "member2"}},
		{"ne", m.Age.Ne(10), []string{"member2", "member3", "member4"}},
		{"ends with", m.Username.EndsWith("4"), []string{"member4"}},
		{"contains", m.Username.Contains("ember"), []string{"member1", "member2", "member3", "member4"}},
		{"ignore case", m.Username.EqualsIgnoreCase("MEMBER2"), []string{"member2"}},
		{"or", m.Age.Eq(10).Or(m.Age.Eq(40)), []string{"member1", "member4"}},
		{"not", m.Age.Lt(30).Not(), []string{"member3", "member4"}},
		{"not null", m.TeamID.IsNotNull(), []string{"member1", "member2", "member3", "member4"}},
		{"raw", query.Expr("?TableAlias.age % 20 = 0"), []string{"member2", "member4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := query.SelectFrom(f, m.EntityPath).Where(tc.pred).OrderBy(m.ID.Asc()).Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, usernames(rows))
		})
	}
}

func TestNilPredicatesAreSkipped(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember
	var absent *query.BooleanExpression

	withNil := query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("member1"), nil, m.Age.Eq(10), absent)
	without := query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("member1"), m.Age.Eq(10))
	combined := query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("member1").And(m.Age.Eq(10)))

	assert.Equal(t, without.String(), withNil.String())
	assert.Equal(t, without.String(), combined.String())

	allNil := query.SelectFrom(f, m.EntityPath).Where(nil, absent)
	assert.NotContains(t, allNil.String(), "WHERE")
	count, err := allNil.FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNilPredicatesKeepResultSet(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember
	var absent *query.BooleanExpression

	cases := []struct {
		name     string
		withNil  []query.Predicate
		list     []query.Predicate
		combined query.Predicate
		want     []string
	}{
		{
			name:     "single row",
			withNil:  []query.Predicate{m.Username.Eq("member1"), nil, m.Age.Eq(10), absent},
			list:     []query.Predicate{m.Username.Eq("member1"), m.Age.Eq(10)},
			combined: m.Username.Eq("member1").And(m.Age.Eq(10)),
			want:     []string{"member1"},
		},
		{
			name:     "several rows",
			withNil:  []query.Predicate{nil, m.Age.Goe(20), absent},
			list:     []query.Predicate{m.Age.Goe(20)},
			combined: m.Age.Goe(20),
			want:     []string{"member2", "member3", "member4"},
		},
		{
			name:     "several rows and two filters",
			withNil:  []query.Predicate{m.Age.Goe(20), nil, m.Username.NotIn("member3")},
			list:     []query.Predicate{m.Age.Goe(20), m.Username.NotIn("member3")},
			combined: m.Age.Goe(20).And(m.Username.NotIn("member3")),
			want:     []string{"member2", "member4"},
		},
		{
			name:     "no rows",
			withNil:  []query.Predicate{absent, m.Age.Gt(100), nil},
			list:     []query.Predicate{m.Age.Gt(100)},
			combined: m.Age.Gt(100),
			want:     []string{},
		},
	}
	fetch := func(t *testing.T, preds ...query.Predicate) []string {
		t.Helper()
		rows, err := query.SelectFrom(f, m.EntityPath).Where(preds...).OrderBy(m.ID.Asc()).Fetch(ctx)
		require.NoError(t, err)
		return usernames(rows)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fetch(t, tc.withNil...))
			assert.Equal(t, tc.want, fetch(t, tc.list...))
			assert.Equal(t, tc.want, fetch(t, tc.combined))
		})
	}
}

func TestQueryIsImmutable(t *testing.T) {
	_, f := setup(t)
	m := entity.QMember
	base := query.SelectFrom(f, m.EntityPath)
	filtered := base.Where(m.Age.Eq(10))

	assert.Nil(t, base.Predicate())
	assert.NotNil(t, filtered.Predicate())
	assert.NotEqual(t, base.String(), filtered.String())
}

func TestFetchJoin(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember
	q := query.SelectFrom(f, m.EntityPath).FetchJoin(m.Team).FetchJoin(m.Team).OrderBy(m.ID.Asc())

	sql := q.String()
	assert.Contains(t, sql, `LEFT JOIN "team" AS "team"`)
	assert.Contains(t, sql, `"team"."name" AS "team__name"`)

	members, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, members, 4)
	teams := []string{"teamA", "teamA", "teamB", "teamB"}
	for i, member := range members {
		require.NotNil(t, member.Team, member.Username)
		assert.Equal(t, teams[i], member.Team.Name)
		assert.Equal(t, member.TeamID, member.Team.ID)
	}
}

func TestFetchJoinKeepsMembersWithoutTeam(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	loner := entity.NewMember("loner", 50, nil)
	_, err := f.DB().NewInsert().Model(loner).Exec(ctx)
	require.NoError(t, err)

	q := query.SelectFrom(f, m.EntityPath).FetchJoin(m.Team).OrderBy(m.ID.Asc())
	members, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, members, 5)
	assert.Equal(t, "loner", members[4].Username)
	assert.Nil(t, members[4].Team)

	count, err := q.FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(members), count)

	type nameAndTeam struct {
		Username string  `bun:"username"`
		TeamName *string `bun:"team_name"`
	}
	var rows []nameAndTeam
	require.NoError(t, q.Project(ctx, &rows, m.Username.As("username"), m.Team.Name.As("team_name")))
	require.Len(t, rows, 5)
	assert.Nil(t, rows[4].TeamName)

	inner, err := query.SelectFrom(f, m.EntityPath).Join(m.Team).FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, inner)
}

func TestJoinFiltersWithoutLoading(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	members, err := query.SelectFrom(f, m.EntityPath).
		Join(m.Team).
		Where(m.Team.Name.Eq("teamB")).
		OrderBy(m.ID.Asc()).
		Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member4"}, usernames(members))
	for _, member := range members {
		assert.Nil(t, member.Team)
	}

	count, err := query.SelectFrom(f, m.EntityPath).FetchJoin(m.Team).Where(m.Team.Name.Eq("teamA")).FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProject(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	type nameAndTeam struct {
		Username string `bun:"username"`
		TeamName string `bun:"team_name"`
	}
	var rows []nameAndTeam
	err := query.SelectFrom(f, m.EntityPath).
		Join(m.Team).
		Where(m.Age.Goe(30)).
		OrderBy(m.Age.Asc()).
		Project(ctx, &rows, m.Username.As("username"), m.Team.Name.As("team_name"))
	require.NoError(t, err)
	assert.Equal(t, []nameAndTeam{{"member3", "teamB"}, {"member4", "teamB"}}, rows)

	assert.Error(t, query.SelectFrom(f, m.EntityPath).Project(ctx, &rows))
}

func TestTemplate(t *testing.T) {
	ctx, f := setup(t)

	found, err := query.CreateQuery[entity.Member](f, "SELECT * FROM member WHERE username = :username").
		SetParameter("username", "member1").
		GetSingleResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, found.Age)

	rows, err := query.CreateQuery[entity.Member](f,
		"SELECT m.* FROM member m JOIN team t ON t.id = m.team_id WHERE t.name = :team AND m.age > :age ORDER BY m.id").
		SetParameters(map[string]any{"team": "teamA", "age": 10}).
		GetResultList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member2"}, usernames(rows))

	commented, err := query.CreateQuery[entity.Member](f,
		"SELECT * FROM member -- don't filter by team?\n"+
			"WHERE /* username = :ignored */ username = :username").
		SetParameter("username", "member3").
		GetSingleResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, commented.Age)

	_, err = query.CreateQuery[entity.Member](f, "SELECT * FROM member WHERE age > :age").
		SetParameter("age", 0).
		GetSingleResult(ctx)
	assert.ErrorIs(t, err, query.ErrNonUniqueResult)

	_, err = query.CreateQuery[entity.Member](f, "SELECT * FROM member WHERE username = :username").
		SetParameter("username", "nobody").
		GetSingleResult(ctx)
	assert.ErrorIs(t, err, query.ErrNoResult)
}

// The template and the builder return the same rows for the same filter.
func TestTemplateMatchesBuilder(t *testing.T) {
	ctx, f := setup(t)
	m := entity.QMember

	fromTemplate, err := query.CreateQuery[entity.Member](f, "SELECT * FROM member WHERE username = :username").
		SetParameter("username", "member1").
		GetResultList(ctx)
	require.NoError(t, err)
	fromBuilder, err := query.SelectFrom(f, m.EntityPath).Where(m.Username.Eq("member1")).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, fromTemplate, fromBuilder)
}

func TestEntityPathOf(t *testing.T) {
	_, f := setup(t)
	p := query.EntityPathOf[entity.Member](f.DB())
	assert.Equal(t, "member", p.Table())
	assert.Equal(t, "member", p.Alias())
}
