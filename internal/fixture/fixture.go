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

// Package fixture loads the example data set: two teams with two members each.
package fixture

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/entity"
)

type Fixture struct {
	TeamA   *entity.Team
	TeamB   *entity.Team
	Members []*entity.Member
}

// Member returns the loaded member called username, or nil.
func (f *Fixture) Member(username string) *entity.Member {
	for _, m := range f.Members {
		if m.Username == username {
			return m
		}
	}
	return nil
}

// Load inserts teamA, teamB and member1..member4 aged 10 to 40, the first
// two on teamA and the others on teamB.
func Load(ctx context.Context, db bun.IDB) (*Fixture, error) {
	teamA := entity.NewTeam("teamA")
	teamB := entity.NewTeam("teamB")
	teams := []*entity.Team{teamA, teamB}
	if _, err := db.NewInsert().Model(&teams).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert teams: %w", err)
	}

	members := []*entity.Member{
		entity.NewMember("member1", 10, teamA),
		entity.NewMember("member2", 20, teamA),
		entity.NewMember("member3", 30, teamB),
		entity.NewMember("member4", 40, teamB),
	}
	if _, err := db.NewInsert().Model(&members).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert members: %w", err)
	}
	return &Fixture{TeamA: teamA, TeamB: teamB, Members: members}, nil
}
