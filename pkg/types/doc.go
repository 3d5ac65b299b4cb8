// Package types defines the core vocabulary shared by every gognl package.
//
// This package contains type definitions for:
//   - NodeKind: the tag carried by every AST node
//   - DynamicSubscript: symbolic indexes such as $first and $last
//   - Error types: Structured errors with codes
package types
