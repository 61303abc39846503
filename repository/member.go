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

package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/entity"
	"github.com/tomoncle/querykit/query"
)

// MemberSearchCondition holds the optional filters of a member search. Empty
// strings and nil bounds are ignored.
type MemberSearchCondition struct {
	Username string `json:"username,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	AgeGoe   *int   `json:"age_goe,omitempty"`
	AgeLoe   *int   `json:"age_loe,omitempty"`
}

// MemberTeamDTO is one row of the member and team projection.
type MemberTeamDTO struct {
	MemberID int64  `bun:"member_id" json:"member_id"`
	Username string `bun:"username" json:"username"`
	Age      int    `bun:"age" json:"age"`
	TeamID   int64  `bun:"team_id" json:"team_id"`
	TeamName string `bun:"team_name" json:"team_name"`
}

const findByTeamNameTemplate = `SELECT m.* FROM member AS m
JOIN team AS t ON t.id = m.team_id
WHERE t.name = :teamName
ORDER BY m.id`

// MemberRepository adds the member specific queries to the generic repository.
type MemberRepository struct {
	Repository[entity.Member]
}

func NewMemberRepository(db bun.IDB) *MemberRepository {
	return &MemberRepository{
		Repository: NewRepositoryWithPath(query.NewFactory(db), entity.QMember.EntityPath),
	}
}

// FindByUsername returns the only member called username.
func (r *MemberRepository) FindByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.Select().Where(entity.QMember.Username.Eq(username)).FetchOne(ctx)
}

// FindAllWithTeam returns every member with its team loaded in the same statement.
func (r *MemberRepository) FindAllWithTeam(ctx context.Context) ([]*entity.Member, error) {
	m := entity.QMember
	return r.Select().FetchJoin(m.Team).OrderBy(m.ID.Asc()).Fetch(ctx)
}

// FindByTeamName runs a literal template joining the team table.
func (r *MemberRepository) FindByTeamName(ctx context.Context, teamName string) ([]*entity.Member, error) {
	return query.CreateQuery[entity.Member](r.Factory(), findByTeamNameTemplate).
		SetParameter("teamName", teamName).
		GetResultList(ctx)
}

// Search returns the members matching cond, teams loaded, ordered by id.
func (r *MemberRepository) Search(ctx context.Context, cond MemberSearchCondition) ([]*entity.Member, error) {
	m := entity.QMember
	return r.Select().
		FetchJoin(m.Team).
		Where(searchPredicates(cond)...).
		OrderBy(m.ID.Asc()).
		Fetch(ctx)
}

// SearchMemberTeam projects the members matching cond together with their
// team columns.
func (r *MemberRepository) SearchMemberTeam(ctx context.Context, cond MemberSearchCondition) ([]MemberTeamDTO, error) {
	m := entity.QMember
	rows := make([]MemberTeamDTO, 0)
	err := r.Select().
		Join(m.Team).
		Where(searchPredicates(cond)...).
		OrderBy(m.ID.Asc()).
		Project(ctx, &rows,
			m.ID.As("member_id"),
			m.Username.As("username"),
			m.Age.As("age"),
			m.Team.ID.As("team_id"),
			m.Team.Name.As("team_name"),
		)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func searchPredicates(cond MemberSearchCondition) []query.Predicate {
	m := entity.QMember
	return []query.Predicate{
		query.IfNotZero(cond.Username, m.Username.Eq),
		query.IfNotZero(cond.TeamName, m.Team.Name.Eq),
		query.IfPresent(cond.AgeGoe, m.Age.Goe),
		query.IfPresent(cond.AgeLoe, m.Age.Loe),
	}
}
