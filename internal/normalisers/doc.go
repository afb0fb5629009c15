// Package normalisers provides implementations of the DocumentNormaliser
// interface. Each normaliser knows how to map one source's raw listing items
// onto the fixed Document schema.
package normalisers
