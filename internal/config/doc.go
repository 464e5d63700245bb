// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package config defines the format-agnostic model of a grid: the derivation
// declarations read from the user's files, before any of them are evaluated.
//
// The builder consumes a *Model and never sees the source format. Concrete
// loaders, such as the HCL one, live in their own packages and implement
// Loader.
package config
