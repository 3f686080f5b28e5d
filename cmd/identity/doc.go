// Package identity owns user records: registration, lookup by id/username/
// email, and profile mutations (username, email, password hash).
//
// Usernames and emails are stored as entered but matched case-insensitively
// via normalized comparison, and both carry unique constraints. Users are
// never physically deleted here.
package identity
