// Package fmi2 provides the vocabulary shared by every other package:
// the FMI 2.0 enumerations (data type, causality, variability, initial,
// status, FMU type) and the sealed Value union holding one scalar.
//
// This package imports nothing internal. All string input from users,
// declaration files and scenario files is normalized here exactly once,
// so later stages compare enum ordinals only.
//
// Key constraints:
//   - Enum ordinals are stable; the rules table indexes arrays with them.
//   - String() returns the token used in modelDescription.xml.
//   - Integer values are int32, matching fmi2Integer.
package fmi2
