// Copyright 2024 gillouche
// SPDX-License-Identifier: Apache-2.0

package versions_test

import (
	"reflect"
	"testing"

	versions "github.com/gillouche/kiln/pkg/kiln/versions"
)

func TestLooseVersionOrder(t *testing.T) {
	result := versions.NewLooseVersionsNoErr([]string{
		"1.25",
		"1.5",
		"2.331.0",
		"v0.14.10",
		"v0.14.2",
		"not-a-version",
		"1.25.1",
	}).Sorted().All()

	expectedOrder := []string{
		"v0.14.2",
		"v0.14.10",
		"1.5",
		"1.25",
		"1.25.1",
		"2.331.0",
	}

	if !reflect.DeepEqual(result, expectedOrder) {
		t.Fatalf("Expected result '%#v' to equal '%#v'", result, expectedOrder)
	}
}

func TestLooseVersionHighest(t *testing.T) {
	highest, found := versions.NewLooseVersionsNoErr([]string{
		"3.11",
		"3.9",
		"3.12",
	}).Highest()

	if !found {
		t.Fatalf("Expected highest version to be found")
	}
	if highest.Original != "3.12" {
		t.Fatalf("Expected highest version '3.12', but was '%s'", highest.Original)
	}

	_, found = versions.NewLooseVersionsNoErr([]string{"junk"}).Highest()
	if found {
		t.Fatalf("Expected no highest version among unparseable input")
	}
}

func TestLooseVersionFilter(t *testing.T) {
	result := versions.NewLooseVersionsNoErr([]string{
		"3.11",
		"3.12",
		"4.0",
	}).Filter(func(v versions.LooseVersion) bool { return v.Major() == 3 }).All()

	expected := []string{"3.11", "3.12"}

	if !reflect.DeepEqual(result, expected) {
		t.Fatalf("Expected result '%#v' to equal '%#v'", result, expected)
	}
}

func TestLooseVersionFilterConstraints(t *testing.T) {
	result, err := versions.NewLooseVersionsNoErr([]string{
		"1.24",
		"1.25",
		"2.0",
	}).FilterConstraints(">= 1.25, < 2.0")
	if err != nil {
		t.Fatalf("Expected filtering to succeed: %s", err)
	}

	expected := []string{"1.25"}

	if !reflect.DeepEqual(result.All(), expected) {
		t.Fatalf("Expected result '%#v' to equal '%#v'", result.All(), expected)
	}

	_, err = versions.NewLooseVersionsNoErr([]string{"1.0"}).FilterConstraints("not-a-constraint")
	if err == nil {
		t.Fatalf("Expected invalid constraint to error")
	}
}
