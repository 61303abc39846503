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

package entity

import "github.com/tomoncle/querykit/query"

// Query metadata, one descriptor per entity. Columns and aliases mirror the
// bun tags in entity.go.
var (
	QHello  = newQHello(query.NewEntityPath[Hello]("hello", "hello"))
	QTeam   = newQTeam(query.NewEntityPath[Team]("team", "team"))
	QMember = newQMember(query.NewEntityPath[Member]("member", "member"))
)

type QHelloPath struct {
	*query.EntityPath[Hello]

	ID *query.NumberPath[int64]
}

func newQHello(p *query.EntityPath[Hello]) *QHelloPath {
	return &QHelloPath{
		EntityPath: p,
		ID:         query.NewNumberPath[int64](p, "id"),
	}
}

type QTeamPath struct {
	*query.EntityPath[Team]

	ID   *query.NumberPath[int64]
	Name *query.StringPath
}

func newQTeam(p *query.EntityPath[Team]) *QTeamPath {
	return &QTeamPath{
		EntityPath: p,
		ID:         query.NewNumberPath[int64](p, "id"),
		Name:       query.NewStringPath(p, "name"),
	}
}

type QMemberPath struct {
	*query.EntityPath[Member]

	ID       *query.NumberPath[int64]
	Username *query.StringPath
	Age      *query.NumberPath[int]
	TeamID   *query.NumberPath[int64]
	// Team is the belongs-to association, usable with Join and FetchJoin.
	Team *QTeamPath
}

func newQMember(p *query.EntityPath[Member]) *QMemberPath {
	return &QMemberPath{
		EntityPath: p,
		ID:         query.NewNumberPath[int64](p, "id"),
		Username:   query.NewStringPath(p, "username"),
		Age:        query.NewNumberPath[int](p, "age"),
		TeamID:     query.NewNumberPath[int64](p, "team_id"),
		Team:       newQTeam(query.NewRelationPath[Team](p, "Team", "team", "team_id", "id")),
	}
}
