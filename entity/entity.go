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

// Package entity holds the persistent models and their query metadata.
package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/database"
)

// ErrTeamNotPersisted is returned when a member is written before its team has an id.
var ErrTeamNotPersisted = errors.New("entity: team is not persisted")

// Hello is the minimal mapped entity, an identity and nothing else. Raw
// inserts must name the id column, as in NewInsert().Model(h).Column("id").
type Hello struct {
	bun.BaseModel `bun:"table:hello,alias:hello"`

	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

// Team groups members. The Members collection is navigation only and is
// never written by cascade.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:team"`

	ID      int64     `bun:"id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name" json:"name"`
	Members []*Member `bun:"rel:has-many,join:id=team_id" json:"-"`
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}

func (t *Team) removeMember(m *Member) {
	for i, x := range t.Members {
		if x == m {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}

// Member belongs to at most one team and owns the team_id foreign key.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:member"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username" json:"username"`
	Age      int    `bun:"age" json:"age"`
	TeamID   int64  `bun:"team_id,nullzero" json:"team_id,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)

// NewMember creates a member and, when team is not nil, attaches it.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, keeping both sides of the association
// in memory consistent. A nil team detaches the member.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team == team {
		return
	}
	if m.Team != nil {
		m.Team.removeMember(m)
	}
	m.Team = team
	m.TeamID = 0
	if team != nil {
		m.TeamID = team.ID
		team.Members = append(team.Members, m)
	}
}

// BeforeAppendModel copies the team id into TeamID before the row is written.
func (m *Member) BeforeAppendModel(_ context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		if m.Team == nil {
			return nil
		}
		if m.Team.ID == 0 {
			return fmt.Errorf("%w: member %q references team %q", ErrTeamNotPersisted, m.Username, m.Team.Name)
		}
		m.TeamID = m.Team.ID
	}
	return nil
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Team)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*Member)(nil), 20))
	database.RegisteredModel(database.NewModelAdapter((*Hello)(nil), 30))

	database.RegisterForeignKeys(database.ForeignKeyConstraint{
		Table:           "member",
		Column:          "team_id",
		ReferenceTable:  "team",
		ReferenceColumn: "id",
		OnDelete:        "SET NULL",
	})
}
