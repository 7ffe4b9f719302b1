package maven

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePOMInheritsParent(t *testing.T) {
	pom, err := ParsePOM(strings.NewReader(`<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent>
    <groupId>org.example</groupId>
    <artifactId>parent</artifactId>
    <version>3.1</version>
  </parent>
  <artifactId> demo-maven-plugin </artifactId>
  <packaging>maven-plugin</packaging>
  <name>Demo Plugin</name>
</project>`))
	require.NoError(t, err)
	assert.Equal(t, "org.example", pom.EffectiveGroupID())
	assert.Equal(t, "3.1", pom.EffectiveVersion())
	assert.Equal(t, "demo-maven-plugin", pom.ArtifactID)
	assert.Equal(t, PackagingMavenPlugin, pom.EffectivePackaging())
	assert.Equal(t, "Demo Plugin", pom.Name)
}

func TestParsePOMDefaultsAndErrors(t *testing.T) {
	pom, err := ParsePOM(strings.NewReader(`<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version></project>`))
	require.NoError(t, err)
	assert.Equal(t, "jar", pom.EffectivePackaging())
	assert.Equal(t, "g", pom.EffectiveGroupID())

	_, err = ParsePOM(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}
