// Package repository provides Repository[T], the generic CRUD, page and
// upsert operations driven by query predicates, and MemberRepository with
// the member search, projection and join fetch queries.
package repository
