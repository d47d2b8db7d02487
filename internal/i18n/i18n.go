// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides the dashboard UI message catalog.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

// SupportedLanguages lists the UI languages, default first.
var SupportedLanguages = []string{"en", "ru"}

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds the translations of every supported language. It is
// read-only after Load.
type Catalog struct {
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	logger       *slog.Logger
}

// Load reads the embedded message files.
func Load(logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		translations: make(map[string]map[string]string, len(SupportedLanguages)),
		logger:       logger,
	}

	for _, lang := range SupportedLanguages {
		c.supported = append(c.supported, language.MustParse(lang))
		if err := c.loadLanguage(lang); err != nil {
			return nil, fmt.Errorf("loading language %s: %w", lang, err)
		}
	}
	c.matcher = language.NewMatcher(c.supported)

	logger.Debug("i18n initialized", "languages", SupportedLanguages)
	return c, nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file MessageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Language != lang {
		return fmt.Errorf("%s declares language %q", path, file.Language)
	}

	m := make(map[string]string, len(file.Messages))
	for _, msg := range file.Messages {
		m[msg.ID] = msg.Translation
	}
	c.translations[lang] = m
	return nil
}

// T translates key into lang, falling back to the default language and
// finally to the key itself. Args are applied with fmt.Sprintf.
func (c *Catalog) T(lang, key string, args ...any) string {
	translation, ok := c.translations[lang][key]
	if !ok {
		translation, ok = c.translations[DefaultLanguage][key]
		if !ok {
			return key
		}
		if lang != DefaultLanguage {
			c.logger.Debug("missing translation, using default", "key", key, "lang", lang)
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// Match returns the supported language that best fits an Accept-Language
// header or a bare language code.
func (c *Catalog) Match(acceptLang string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(SupportedLanguages) {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}

// Keys returns the sorted message keys of lang.
func (c *Catalog) Keys(lang string) []string {
	keys := make([]string, 0, len(c.translations[lang]))
	for k := range c.translations[lang] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsSupported reports whether lang is a UI language.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, lang)
}
