package web

import "embed"

// StaticFS holds the embedded static assets.
//
//go:embed static/*
var StaticFS embed.FS

// defaultPlanNotes is shown when no plan notes file is configured.
//
//go:embed notes/plans.md
var defaultPlanNotes string
