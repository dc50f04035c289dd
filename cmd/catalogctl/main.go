// Package main provides catalogctl, a maintenance tool for the library catalog database.
// It applies the schema, loads fixture data and prints table statistics.
package main

func main() {
	Execute()
}
