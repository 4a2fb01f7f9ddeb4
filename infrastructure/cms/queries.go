package cms

// treeFields projects a person with the unions they partner in, the other
// partner of each union and every child with its own child count.
const treeFields = `
  _id, fullName, generation, sex, profileImage, slug,
  "unions": *[_type == "union" && ^._id in partners[]._ref] {
    _id,
    "partner": partners[@._ref != ^.^._id][0]->{ _id, fullName, sex, profileImage, slug },
    children[]-> {
      _id, fullName, generation, sex, profileImage, slug,
      "childCount": count(*[_type == "union" && ^._id in partners[]._ref].children)
    }
  }
`

// rootQuery selects the generation-1 male root line
const rootQuery = `*[_type == "person" && generation == 1 && sex == "male"] {` + treeFields + `}`

// branchQuery selects one person by id; the result is null when unknown
const branchQuery = `*[_type == "person" && _id == $nodeId][0] {` + treeFields + `}`

// pingQuery is the cheapest query that still touches the dataset
const pingQuery = `count(*[_type == "person"][0...1])`

// minimalFields is the person projection used by directories and relatives
const minimalFields = `_id, fullName, slug, profileImage, sex, isDescendant, generation, birthDate`

// peopleQuery lists every person alphabetically
const peopleQuery = `*[_type == "person"] | order(fullName asc){ ` + minimalFields + ` }`

// personQuery resolves a profile by slug with the union the person was born
// into (and the parents' parents), the unions they partner in, and the
// family page they belong to: their own, a partner's or a parent's.
const personQuery = `*[_type == "person" && slug.current == $slug][0] {
  ` + minimalFields + `, deathDate, isDeceased, bio,
  "audioGallery": audioGallery[]{ "url": asset->url, "title": title },
  "relevantFamily": coalesce(
    *[_type == "family" && headOfFamily._ref == ^._id][0],
    *[_type == "family" && headOfFamily._ref in *[_type == "union" && ^.^._id in partners[]._ref].partners[]._ref][0],
    *[_type == "family" && headOfFamily._ref in *[_type == "union" && ^.^._id in children[]._ref].partners[]._ref][0]
  ) { slug, familyName },
  "parentsData": *[_type == "union" && ^._id in children[]._ref]{
    _id,
    partners[]->{
      ` + minimalFields + `,
      "parents": *[_type == "union" && ^._id in children[]._ref].partners[]->{ ` + minimalFields + ` }
    },
    children[]->{ ` + minimalFields + ` }
  },
  "unionsData": *[_type == "union" && ^._id in partners[]._ref] | order(marriageDate asc){
    _id, marriageDate,
    partners[]->{ ` + minimalFields + ` },
    children[]->{ ` + minimalFields + ` }
  }
}`

// familiesQuery lists families by the head's birth date with union counts
const familiesQuery = `*[_type == "family"] | order(headOfFamily->birthDate asc) {
  _id, familyName, slug, mainImage,
  headOfFamily->{ fullName, birthDate },
  "wivesCount": count(*[_type == "union" && ^.headOfFamily._ref in partners[]._ref]),
  "childrenCount": count(*[_type == "union" && ^.headOfFamily._ref in partners[]._ref].children[])
}`

// familyQuery resolves a family page by slug with the head's unions
const familyQuery = `*[_type == "family" && slug.current == $slug][0] {
  _id, familyName, slug, mainImage, familyBio,
  "familyAudioUrl": familyAudio.asset->url,
  headOfFamily->{ ` + minimalFields + ` },
  "rawUnions": *[_type == "union" && ^.headOfFamily._ref in partners[]._ref] | order(marriageDate asc) {
    _id,
    partners[]->{ ` + minimalFields + ` },
    children[]->{ ` + minimalFields + ` }
  }
}`

// statsQuery counts descendants in generations two to four
const statsQuery = `{
  "children": count(*[_type == "person" && isDescendant == true && generation == 2]),
  "grandchildren": count(*[_type == "person" && isDescendant == true && generation == 3]),
  "greatGrandchildren": count(*[_type == "person" && isDescendant == true && generation == 4])
}`
