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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/entity"
	"github.com/tomoncle/querykit/query"
	"github.com/tomoncle/querykit/repository"
)

type scenario struct {
	name string
	run  func(ctx context.Context, db bun.IDB, w io.Writer) error
}

var scenarios = []scenario{
	{name: "template", run: templateByUsername},
	{name: "builder", run: builderByUsername},
	{name: "builder-nil-predicate", run: builderWithNilPredicate},
	{name: "builder-and", run: builderWithAnd},
	{name: "fetch-join", run: fetchJoinTeams},
	{name: "projection", run: projectMemberTeam},
}

const memberByUsername = "SELECT * FROM member WHERE username = :username"

func templateByUsername(ctx context.Context, db bun.IDB, w io.Writer) error {
	m, err := query.CreateQuery[entity.Member](query.NewFactory(db), memberByUsername).
		SetParameter("username", "member1").
		GetSingleResult(ctx)
	return printMember(w, "template", m, err)
}

func builderByUsername(ctx context.Context, db bun.IDB, w io.Writer) error {
	m := entity.QMember
	found, err := query.SelectFrom(query.NewFactory(db), m.EntityPath).
		Where(m.Username.Eq("member1")).
		FetchOne(ctx)
	return printMember(w, "builder", found, err)
}

func builderWithNilPredicate(ctx context.Context, db bun.IDB, w io.Writer) error {
	m := entity.QMember
	found, err := query.SelectFrom(query.NewFactory(db), m.EntityPath).
		Where(m.Username.Eq("member1"), m.Age.Eq(10), nil).
		FetchOne(ctx)
	return printMember(w, "builder-nil-predicate", found, err)
}

func builderWithAnd(ctx context.Context, db bun.IDB, w io.Writer) error {
	m := entity.QMember
	found, err := query.SelectFrom(query.NewFactory(db), m.EntityPath).
		Where(m.Username.Eq("member1").And(m.Age.Eq(10))).
		FetchOne(ctx)
	return printMember(w, "builder-and", found, err)
}

func fetchJoinTeams(ctx context.Context, db bun.IDB, w io.Writer) error {
	members, err := repository.NewMemberRepository(db).FindAllWithTeam(ctx)
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Fprintf(w, "fetch-join: %s -> %v\n", m, m.Team)
	}
	return nil
}

func projectMemberTeam(ctx context.Context, db bun.IDB, w io.Writer) error {
	age := 20
	rows, err := repository.NewMemberRepository(db).SearchMemberTeam(ctx, repository.MemberSearchCondition{AgeGoe: &age})
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Fprintf(w, "projection: %+v\n", r)
	}
	return nil
}

// printMember reports a single result. An empty or ambiguous result is
// printed, not returned, so the demo also runs against an empty database.
func printMember(w io.Writer, name string, m *entity.Member, err error) error {
	switch {
	case query.IsNoUniqueResult(err):
		fmt.Fprintf(w, "%s: %v\n", name, err)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "%s: %s team=%v\n", name, m, m.Team)
	return nil
}
