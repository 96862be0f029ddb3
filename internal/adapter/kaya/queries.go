package kaya

// Fixed query documents for the Kaya GraphQL API. The fragments mirror what
// the web client sends; the response structs in normalize.go follow them.

const searchForGymQuery = `query webSearchForGym($term: String!, $offset: Int!, $count: Int!) {
  webSearchForGym(term: $term, offset: $offset, count: $count) {
    ...WebGymFields
    __typename
  }
}

fragment WebGymFields on WebGym {
  id
  slug
  name
  boulder_count
  route_count
  address
  city
  postal_code
  region
  country
  follower_count
  is_official
  website
  __typename
}
`

const ascentsForGymQuery = `query webAscentsForGym($gym_id: ID!, $count: Int!, $offset: Int!) {
  webAscentsForGym(gym_id: $gym_id, count: $count, offset: $offset) {
    ...WebAscentFields
    __typename
  }
}

fragment WebAscentFields on WebAscent {
  id
  user {
    ...WebUserFields
    __typename
  }
  climb {
    ...WebClimbBasicFields
    __typename
  }
  date
  comment
  rating
  stiffness
  grade {
    ...GradeFields
    __typename
  }
  photo {
    photo_url
    thumb_url
    __typename
  }
  video {
    video_url
    thumb_url
    __typename
  }
  __typename
}

fragment WebUserFields on WebUser {
  id
  username
  fname
  lname
  photo_url
  is_private
  bio
  height
  ape_index
  limit_grade_bouldering {
    name
    id
    __typename
  }
  limit_grade_routes {
    name
    id
    __typename
  }
  is_premium
  __typename
}

fragment WebClimbBasicFields on WebClimb {
  slug
  name
  rating
  ascent_count
  grade {
    name
    id
    __typename
  }
  climb_type {
    name
    __typename
  }
  color {
    name
    __typename
  }
  gym {
    name
    __typename
  }
  board {
    name
    __typename
  }
  destination {
    name
    __typename
  }
  area {
    name
    __typename
  }
  is_gb_moderated
  is_access_sensitive
  is_closed
  __typename
}

fragment GradeFields on Grade {
  id
  name
  climb_type_id
  grade_type_id
  ordering
  mapped_grade_ids
  climb_type_group
  __typename
}
`
