/*
Package auth resolves the workflow roles of a user.

Roles

A workflow configuration assigns groups and users to three roles: contributors, moderators and validators.
The roles are ordered. Moderators can do what contributors can do, and validators can do what moderators can do.

If a document takes part in no workflow, every user with edit access can act in every role.
Wiki admins can always act in every role.
*/
package auth
