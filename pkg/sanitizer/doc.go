// Package sanitizer normalizes client-supplied contact data before validation and storage.
//
// All normalization functions are idempotent. Invalid input yields an empty string rather
// than an error; the validator decides whether an empty value is acceptable.
//
// Normalization includes:
//   - Phone numbers: E.164 format (+[country][number])
//   - Names and free text: collapse whitespace, trim leading/trailing spaces
//   - Emails: trim and lowercase
package sanitizer
