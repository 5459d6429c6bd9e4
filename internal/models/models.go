// Package models defines the catalog's domain records and their public JSON
// projections. The relational store persists these; the search subsystem only
// reads them to build index rows and to format results.
//
// Public projections are maps rather than structs because the result formatter
// attaches highlighted sibling keys ("publ_name!", "authors!", ...) next to the
// plain values, and the set of siblings varies per hit.
package models

import "strings"

// Publisher is a company or group that produces publications.
type Publisher struct {
	ID          int64
	Name        string
	Description string
	URL         string
	TimeCreated int64 // unix timestamp
	TimeUpdated int64
}

// Vals returns the public JSON representation of a publisher.
func (p *Publisher) Vals() map[string]any {
	return map[string]any{
		"publ_id":          p.ID,
		"publ_name":        p.Name,
		"publ_description": p.Description,
		"publ_url":         p.URL,
	}
}

// Publication is a single issue of a magazine or journal.
type Publication struct {
	ID          int64
	Name        string
	Edition     string
	Date        string // display string, not parsed
	Description string
	URL         string
	Seqno       int
	Tags        string // encoded (see DecodeTags)
	PublisherID *int64
	TimeCreated int64
	TimeUpdated int64
}

// Vals returns the public JSON representation of a publication.
func (p *Publication) Vals() map[string]any {
	return map[string]any{
		"pub_id":          p.ID,
		"pub_name":        p.Name,
		"pub_edition":     p.Edition,
		"pub_date":        p.Date,
		"pub_description": p.Description,
		"pub_url":         p.URL,
		"pub_seqno":       p.Seqno,
		"pub_tags":        DecodeTags(p.Tags),
		"publ_id":         p.PublisherID,
	}
}

// Article is a single piece of writing, possibly attached to a publication
// or directly to a publisher.
type Article struct {
	ID            int64
	Title         string
	Subtitle      string
	Date          string // display string, not parsed
	Snippet       string
	Seqno         int
	Pageno        string
	URL           string
	Tags          string // encoded (see DecodeTags)
	Rating        *int   // editorial score, nil if unrated
	PublicationID *int64
	PublisherID   *int64
	TimeCreated   int64
	TimeUpdated   int64

	// Ordered associations, loaded by the store.
	Authors   []Author
	Scenarios []Scenario
}

// Vals returns the public JSON representation of an article. Authors and
// scenarios are returned as ordered ID lists; callers resolve them through
// their own caches, matching the original API contract.
func (a *Article) Vals() map[string]any {
	authors := make([]int64, len(a.Authors))
	for i, au := range a.Authors {
		authors[i] = au.ID
	}
	scenarios := make([]int64, len(a.Scenarios))
	for i, sc := range a.Scenarios {
		scenarios[i] = sc.ID
	}
	return map[string]any{
		"article_id":        a.ID,
		"article_title":     a.Title,
		"article_subtitle":  a.Subtitle,
		"article_date":      a.Date,
		"article_snippet":   a.Snippet,
		"article_seqno":     a.Seqno,
		"article_pageno":    a.Pageno,
		"article_url":       a.URL,
		"article_tags":      DecodeTags(a.Tags),
		"article_rating":    a.Rating,
		"pub_id":            a.PublicationID,
		"publ_id":           a.PublisherID,
		"article_authors":   authors,
		"article_scenarios": scenarios,
	}
}

// Author is a person who has written articles. Names are unique.
type Author struct {
	ID   int64
	Name string
}

// Vals returns the public JSON representation of an author.
func (a *Author) Vals() map[string]any {
	return map[string]any{
		"author_id":   a.ID,
		"author_name": a.Name,
	}
}

// Scenario is a game scenario referenced by articles. DisplayID is the
// human-facing identifier (e.g. "HS17") and may be empty.
type Scenario struct {
	ID        int64
	RoarID    string
	DisplayID string
	Name      string
}

// Vals returns the public JSON representation of a scenario.
func (s *Scenario) Vals() map[string]any {
	return map[string]any{
		"scenario_id":         s.ID,
		"scenario_roar_id":    s.RoarID,
		"scenario_display_id": s.DisplayID,
		"scenario_name":       s.Name,
	}
}

// tagSep is the on-disk tag separator. Tags are stored munged into a single
// string column rather than a join table.
const tagSep = ";"

// DecodeTags unpacks an encoded tag string into an ordered list.
// Empty entries are dropped.
func DecodeTags(encoded string) []string {
	tags := []string{}
	for _, tag := range strings.Split(encoded, tagSep) {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// EncodeTags packs a tag list into its on-disk encoding.
func EncodeTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			clean = append(clean, tag)
		}
	}
	return strings.Join(clean, tagSep)
}
